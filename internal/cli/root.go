package cli

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"strings"
)

func (a *App) getStatus() string {
	if s := a.provider.Current(); s != nil {
		return fmt.Sprintf("(%s)", s.Login)
	}
	return ""
}

// printBanner surfaces the sync layer's error state before each prompt and
// clears it once shown.
func (a *App) printBanner() {
	if msg := a.store.Err(); msg != "" {
		fmt.Fprintln(a.out, "! "+msg)
		a.store.ClearError()
	}
}

func (a *App) Root(ctx context.Context) {

	log.Println("Welcome to deskpad (type 'help' for commands)")
	scanner := bufio.NewScanner(os.Stdin)

	a.Login(ctx)

	for {
		a.printBanner()
		fmt.Printf("deskpad %s> ", a.getStatus())
		if !scanner.Scan() {
			break
		}
		line := scanner.Text()
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}

		cmd := parts[0]
		args := parts[1:]

		switch cmd {
		case "help":
			if a.isLoggedIn() {
				fmt.Fprintln(a.out, "Notes:    notes, addnote, editnote <n>, front <n>, minimize <n>, archive <n>, delnote <n>")
				fmt.Fprintln(a.out, "Todos:    todos, addtodo <text>, done <n>, fix <n>, reorder, deltodo <n>")
				fmt.Fprintln(a.out, "Files:    files, addfile <path>, delfile <n>")
				fmt.Fprintln(a.out, "Planner:  tb, tbset <hour> <slot>, tbcolor <hour> <slot> <color>")
				fmt.Fprintln(a.out, "Other:    backup, logout, exit")
			} else {
				fmt.Fprintln(a.out, "Available commands: register, login, exit")
			}

		case "register":
			a.Register(ctx)
		case "login":
			a.Login(ctx)
		case "logout":
			a.Logout(ctx)

		case "notes":
			a.listNotes()
		case "addnote":
			a.addNote(ctx)
		case "editnote":
			a.editNote(ctx, args)
		case "front":
			a.frontNote(ctx, args)
		case "minimize":
			a.minimizeNote(ctx, args)
		case "archive":
			a.archiveNote(ctx, args)
		case "delnote":
			a.deleteNote(ctx, args)

		case "todos":
			a.listTodos()
		case "addtodo":
			a.addTodo(ctx, args)
		case "done":
			a.toggleTodo(ctx, args)
		case "fix":
			a.fixTodo(ctx, args)
		case "reorder":
			a.reorderTodos(ctx)
		case "deltodo":
			a.deleteTodo(ctx, args)

		case "files":
			a.listFiles()
		case "addfile":
			a.addFile(ctx, args)
		case "delfile":
			a.deleteFile(ctx, args)

		case "tb":
			a.showTimeBox()
		case "tbset":
			a.setTimeBoxEntry(ctx, args)
		case "tbcolor":
			a.setTimeBoxColor(ctx, args)

		case "backup":
			a.runBackup(ctx)

		case "exit", "quit":
			fmt.Fprintln(a.out, "Bye!")
			return
		default:
			fmt.Fprintln(a.out, "Unknown command:", cmd)
		}
	}

}

func (a *App) runBackup(ctx context.Context) {
	session := a.provider.Current()
	if session == nil {
		fmt.Fprintln(a.out, "Log in first")
		return
	}
	if a.backup == nil || !a.backup.Enabled() {
		fmt.Fprintln(a.out, "Backups are not configured")
		return
	}
	key, err := a.backup.Upload(ctx, session.UserID)
	if err != nil {
		fmt.Fprintln(a.out, "Backup failed:", err)
		return
	}
	fmt.Fprintln(a.out, "Backup uploaded:", key)
}
