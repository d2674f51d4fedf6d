package cli

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strconv"

	"github.com/akarpov/deskpad/internal/models"
)

func (a *App) fileByIndex(args []string) (models.StoredFile, bool) {
	files := a.store.Files()
	if len(args) == 0 {
		fmt.Fprintln(a.out, "Usage: <command> <n>  (see 'files' for numbers)")
		return models.StoredFile{}, false
	}
	n, err := strconv.Atoi(args[0])
	if err != nil || n < 1 || n > len(files) {
		fmt.Fprintf(a.out, "No file #%s\n", args[0])
		return models.StoredFile{}, false
	}
	return files[n-1], true
}

func (a *App) listFiles() {
	files := a.store.Files()
	if len(files) == 0 {
		fmt.Fprintln(a.out, "No files yet. Try 'addfile <path>'.")
		return
	}
	for i, f := range files {
		fmt.Fprintf(a.out, "%3d %s (%s, %d bytes)\n", i+1, f.Name, f.MimeType, f.SizeBytes)
	}
}

func (a *App) addFile(ctx context.Context, args []string) {
	if len(args) == 0 {
		fmt.Fprintln(a.out, "Usage: addfile <path>")
		return
	}
	path := args[0]

	content, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintln(a.out, "Error:", err)
		return
	}

	mimeType := mime.TypeByExtension(filepath.Ext(path))
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	if _, err := a.store.AddFile(ctx, filepath.Base(path), mimeType, content); err != nil {
		fmt.Fprintln(a.out, "Error:", err)
		return
	}
	fmt.Fprintln(a.out, "File added")
}

func (a *App) deleteFile(ctx context.Context, args []string) {
	f, ok := a.fileByIndex(args)
	if !ok {
		return
	}
	if err := a.store.DeleteFile(ctx, f.ID); err != nil {
		fmt.Fprintln(a.out, "Error:", err)
		return
	}
	fmt.Fprintln(a.out, "File deleted")
}
