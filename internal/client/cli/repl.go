package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	Signup(ctx context.Context) error
	Login(ctx context.Context) error
	Me(ctx context.Context) error
	Passwd(ctx context.Context) error
	Rename(ctx context.Context) error
	Delete(ctx context.Context) error
	RequestOTP(ctx context.Context) error
	Verify(ctx context.Context) error
	Reset(ctx context.Context) error
	Logout(ctx context.Context) error
}

// runREPL reads commands line by line from reader and dispatches them to a.
// The loop ends on EOF, on "exit" or "quit", or when ctx is cancelled.
//
//	Not logged in: help, signup, login, otp, verify, reset, exit
//	Logged in:     help, me, passwd, rename, delete, otp, verify, logout, exit
//
// Command errors are printed and the loop continues.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		if ctx.Err() != nil {
			return
		}

		printlnFn(fmt.Sprintf("gauth %s> ", statusFn()))
		line, err := readLine(reader)
		if err != nil {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd := parts[0]

		var cmdErr error

		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn("Available commands: me, passwd, rename, delete, otp, verify, logout, exit")
			} else {
				printlnFn("Available commands: signup, login, otp, verify, reset, exit")
			}

		case "signup":
			cmdErr = a.Signup(ctx)

		case "login":
			cmdErr = a.Login(ctx)

		case "me":
			cmdErr = a.Me(ctx)

		case "passwd":
			cmdErr = a.Passwd(ctx)

		case "rename":
			cmdErr = a.Rename(ctx)

		case "delete":
			cmdErr = a.Delete(ctx)

		case "otp":
			cmdErr = a.RequestOTP(ctx)

		case "verify":
			cmdErr = a.Verify(ctx)

		case "reset":
			cmdErr = a.Reset(ctx)

		case "logout":
			cmdErr = a.Logout(ctx)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}

		if cmdErr != nil {
			printlnFn("Error:", cmdErr.Error())
		}
	}
}
