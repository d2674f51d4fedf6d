package cli

import (
	"context"
	"fmt"
)

func (a *App) Register(ctx context.Context) {
	login, err := GetSimpleText(a.reader, "Choose a login", a.out)
	if err != nil || login == "" {
		fmt.Fprintln(a.out, "Registration cancelled")
		return
	}
	name, err := GetSimpleText(a.reader, "Your display name", a.out)
	if err != nil {
		fmt.Fprintln(a.out, "Registration cancelled")
		return
	}
	password, err := GetPassword(a.out)
	if err != nil || len(password) == 0 {
		fmt.Fprintln(a.out, "Registration cancelled")
		return
	}

	if err := a.provider.Register(ctx, login, name, string(password)); err != nil {
		fmt.Fprintln(a.out, "Registration failed:", err)
		return
	}
	fmt.Fprintln(a.out, "Registered. You can now log in.")
}

func (a *App) Login(ctx context.Context) {
	login, err := GetSimpleText(a.reader, "Login", a.out)
	if err != nil || login == "" {
		return
	}
	password, err := GetPassword(a.out)
	if err != nil {
		return
	}

	session, err := a.provider.SignIn(ctx, login, string(password))
	if err != nil {
		fmt.Fprintln(a.out, "Login failed:", err)
		return
	}

	if err := a.store.Open(ctx, session); err != nil {
		fmt.Fprintln(a.out, "Failed to start sync:", err)
		return
	}

	a.startBackup(ctx, session.UserID)
	fmt.Fprintf(a.out, "Welcome, %s!\n", session.Name)
}

func (a *App) Logout(ctx context.Context) {
	a.stopBackup()
	a.provider.SignOut(ctx)
	if err := a.store.Open(ctx, nil); err != nil {
		fmt.Fprintln(a.out, "Error:", err)
	}
	fmt.Fprintln(a.out, "Logged out")
}

func (a *App) startBackup(ctx context.Context, owner string) {
	a.stopBackup()
	if a.backup == nil || !a.backup.Enabled() {
		return
	}
	backupCtx, cancel := context.WithCancel(ctx)
	a.backupCancel = cancel
	go a.backup.Run(backupCtx, owner)
}

func (a *App) stopBackup() {
	if a.backupCancel != nil {
		a.backupCancel()
		a.backupCancel = nil
	}
}
