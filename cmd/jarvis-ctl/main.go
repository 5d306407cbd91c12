package main

import (
	"encoding/json"
	"fmt"
	"os"

	cli "github.com/spf13/pflag"

	"jarvis/internal/ipc"
	"jarvis/internal/reminder"
)

func usage() {
	fmt.Fprintln(os.Stderr, "usage: jarvis-ctl [--socket path] stop | reminders | remind <text>")
	cli.PrintDefaults()
}

func main() {
	socket := cli.StringP("socket", "s", ipc.DefaultSocketPath, "Control socket path")
	cli.Usage = usage
	cli.Parse()

	if cli.NArg() == 0 {
		usage()
		os.Exit(2)
	}

	reply, err := ipc.Send(*socket, ipc.ControlMessage{Cmd: cli.Arg(0), Args: cli.Args()[1:]})
	if err != nil {
		fmt.Println("jarvis not running:", err)
		os.Exit(1)
	}
	if !reply.OK {
		fmt.Println("error:", reply.Message)
		os.Exit(1)
	}

	if cli.Arg(0) == "reminders" {
		var pending []reminder.Reminder
		if err := json.Unmarshal(reply.Data, &pending); err != nil {
			fmt.Println("bad reply:", err)
			os.Exit(1)
		}
		if len(pending) == 0 {
			fmt.Println("no reminders")
		}
		for _, r := range pending {
			fmt.Printf("%s  %s  %s\n", r.Trigger.Format("2006-01-02 15:04:05"), r.ID, r.Message)
		}
		return
	}

	if reply.Message != "" {
		fmt.Println(reply.Message)
	}
}
