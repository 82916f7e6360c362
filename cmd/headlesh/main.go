// headlesh – run a persistent background shell and pipe commands into it.
//
// Usage:
//
//	headlesh create <id> [shell]   – start a new session (default shell: bash)
//	headlesh exec <id>             – run a script (read from stdin) in an existing session
//	headlesh exit <id>             – shut an existing session down
//	headlesh list                  – list known sessions and their status
//
// Each session keeps its own shell process alive between `exec` calls, so
// environment variables, shell functions, and the working directory set by
// one script are visible to the next.
package main

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/term"

	"github.com/ianremillard/headlesh/internal/client"
	"github.com/ianremillard/headlesh/internal/list"
	"github.com/ianremillard/headlesh/internal/server"
)

func main() {
	if os.Getenv(server.DaemonChildEnv) == "1" {
		os.Exit(runDetachedChild())
	}

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "create":
		os.Exit(cmdCreate())
	case "exec":
		os.Exit(cmdExec())
	case "exit":
		os.Exit(cmdExit())
	case "list":
		os.Exit(cmdList())
	case "-h", "--help", "help":
		usage()
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "headlesh: unknown command %q\n", os.Args[1])
		usage()
		os.Exit(1)
	}
}

// runDetachedChild is reached only in the re-exec'd process started by
// cmdCreate; os.Args here are exactly ["headlesh", "create", id, shellPath]
// as cmdCreate's re-exec built them.
func runDetachedChild() int {
	if len(os.Args) != 4 {
		fmt.Fprintln(os.Stderr, "headlesh: malformed detached invocation")
		return 1
	}
	return server.RunDetached(os.Args[2], os.Args[3])
}

func cmdCreate() int {
	args := os.Args[2:]
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "usage: headlesh create <id> [shell]")
		return 1
	}
	id := args[0]
	shell := ""
	if len(args) >= 2 {
		shell = args[1]
	}
	return server.Create(id, shell, os.Stderr)
}

func cmdExec() int {
	args := os.Args[2:]
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "usage: headlesh exec <id> (script read from stdin)")
		return 1
	}
	id := args[0]

	script, err := io.ReadAll(os.Stdin)
	if err != nil {
		fmt.Fprintf(os.Stderr, "headlesh: read script from stdin: %v\n", err)
		return 1
	}

	if term.IsTerminal(int(os.Stdin.Fd())) && len(script) == 0 {
		fmt.Fprintln(os.Stderr, "headlesh: no script on stdin (reading from a terminal; pipe a script in)")
	}

	code, err := client.Exec(id, script, os.Stdout, os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "headlesh: %v\n", err)
	}
	return code
}

func cmdExit() int {
	args := os.Args[2:]
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "usage: headlesh exit <id>")
		return 1
	}
	if err := client.SubmitExit(args[0]); err != nil {
		fmt.Fprintf(os.Stderr, "headlesh: %v\n", err)
		return 1
	}
	return 0
}

func cmdList() int {
	entries, err := list.Enumerate()
	if err != nil {
		fmt.Fprintf(os.Stderr, "headlesh: %v\n", err)
		return 1
	}
	if len(entries) == 0 {
		fmt.Println("no sessions")
		return 0
	}

	var reported, stale []list.Entry
	for _, e := range entries {
		if e.Status == list.Stale {
			stale = append(stale, e)
		} else {
			reported = append(reported, e)
		}
	}

	if len(reported) > 0 {
		fmt.Printf("%-20s %-10s %-8s %-10s %s\n", "ID", "STATUS", "PID", "SHELL", "CREATED")
		for _, e := range reported {
			printListRow(os.Stdout, e)
		}
	}
	for _, e := range stale {
		printListRow(os.Stderr, e)
	}
	return 0
}

func printListRow(w io.Writer, e list.Entry) {
	shell := e.Meta.Shell
	if shell == "" {
		shell = "-"
	}
	created := "-"
	if !e.Meta.CreatedAt.IsZero() {
		created = e.Meta.CreatedAt.Local().Format("2006-01-02 15:04:05")
	}
	fmt.Fprintf(w, "%-20s %-10s %-8d %-10s %s\n", e.ID, e.Status, e.PID, shell, created)
}

func usage() {
	fmt.Fprintln(os.Stderr, `headlesh – run a persistent background shell and pipe commands into it

Commands:
  create <id> [shell]   Start a new session (default shell: bash)
  exec <id>             Run a script (stdin) in an existing session
  exit <id>             Shut an existing session down
  list                  List known sessions and their status

Environment:
  HEADLESH_SESSIONS_ROOT  override the default rendezvous directory (/tmp/headlesh_sessions)`)
}
