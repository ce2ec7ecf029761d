package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/clipvault/internal/client/models"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	Start(ctx context.Context) error
	Record(ctx context.Context) error
	StopRecord(ctx context.Context) error
	Stop(ctx context.Context) (*models.Clip, error)
	List(ctx context.Context) error
	Upload(ctx context.Context, arg string) error
	Sync(ctx context.Context) error
	Delete(ctx context.Context, arg string) error
	Play(ctx context.Context, arg string) error
}

const helpText = `Available commands:
  start            acquire the camera
  record           begin recording
  stop-record      finish recording and save the clip
  stop             stop the camera (saves an active recording)
  (l)ist           list clips, newest first
  upload <id>      upload one clip
  sync             upload all pending and failed clips
  delete <id>      delete a clip
  play <id>        print the preview file of a clip
  exit | quit      leave the program`

// runREPL reads commands line by line and dispatches them to a until input
// ends or the user types exit or quit. Command errors are printed and the
// loop continues.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for {
		printlnFn(fmt.Sprintf("cv %s> ", statusFn()))
		if !scanner.Scan() {
			return
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}
		cmd := parts[0]
		arg := ""
		if len(parts) > 1 {
			arg = parts[1]
		}

		var err error
		switch cmd {
		case "help":
			printlnFn(helpText)
		case "start":
			err = a.Start(ctx)
		case "record":
			err = a.Record(ctx)
		case "stop-record":
			err = a.StopRecord(ctx)
		case "stop":
			_, err = a.Stop(ctx)
		case "l", "list":
			err = a.List(ctx)
		case "upload":
			err = a.Upload(ctx, arg)
		case "sync":
			err = a.Sync(ctx)
		case "delete":
			err = a.Delete(ctx, arg)
		case "play":
			err = a.Play(ctx, arg)
		case "exit", "quit":
			printlnFn("Bye!")
			return
		default:
			printlnFn("Unknown command:", cmd)
		}

		if err != nil {
			printlnFn("Error:", err)
		}
	}
}
