package main

import (
	"fmt"
	"os"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "watch":
		err = cmdWatch(os.Args[2:])
	case "replay":
		err = cmdReplay(os.Args[2:])
	case "probe":
		err = cmdProbe(os.Args[2:])
	case "harvest":
		err = cmdHarvest(os.Args[2:])
	case "read":
		err = cmdRead(os.Args[2:])
	case "courses":
		err = cmdCourses(os.Args[2:])
	case "config":
		err = cmdConfig()
	case "help", "-h", "--help":
		printUsage()
	case "version", "-v", "--version":
		fmt.Printf("studyflow %s\n", Version)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`studyflow - course automation for the hosted learning platform

Usage:
  studyflow <command> [arguments]

Commands:
  courses         List enrolled courses (and leaves with -course N)
  watch           Simulate watching videos until the platform reports them done
  replay          Answer homework questions from the cached answer store
  probe           Answer homework questions with random guesses to reveal answers
  harvest         Store previously-submitted answers for later replay
  read            Report article (text leaf) completion status
  config          Show the active configuration
  version         Print the version

Target selection (watch/replay/probe/harvest/read):
  -course N       1-based course number from 'studyflow courses' (0 = all)
  -leaf ID        leaf id to process; repeat for several (default: all leaves)

A session file at ~/.studyflow/session.yaml with authenticated headers is
required; producing it is the login flow's job, not this tool's.`)
}
