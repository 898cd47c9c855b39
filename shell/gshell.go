package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/liangmanlin/gopost/config"
	"github.com/liangmanlin/gopost/httpc"
	"github.com/liangmanlin/gopost/kernel"
	"github.com/liangmanlin/readline"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// how long --cmd waits for responses beyond one dial
const flushGrace = 3 * time.Second

func newRootCmd() *cobra.Command {
	var configPath, cmdLine, logPath string
	var debug bool
	root := &cobra.Command{
		Use:   "gshell",
		Short: "gshell - best effort json poster console",
		Long: `gshell runs a background dispatcher that posts json documents to http
collectors, and a console to queue posts and inspect the connection pool.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("log-path") {
				cfg.Log.Path = logPath
			}
			if debug {
				cfg.Log.Level = int(kernel.LogLevelDebug)
			}
			live := cmdLine == ""
			if live {
				// the console owns the terminal
				cfg.Log.Stdout = false
			}
			cfg.ApplyLog()
			defer kernel.CloseLog()

			d, err := httpc.New(cfg.DispatcherOptions()...)
			if err != nil {
				return fmt.Errorf("start dispatcher: %w", err)
			}
			defer d.Shutdown()
			console := newConsole(d, cfg.Metrics.URL)
			if !live {
				rs := console.Exec(cmdLine, func(s string) { fmt.Println(s) })
				if rs.Help {
					return fmt.Errorf("unknown command or missing arguments: %s", cmdLine)
				}
				fmt.Println(rs.Output)
				if !d.Flush(cfg.Client.DialTimeout + flushGrace) {
					return fmt.Errorf("posts still in flight after %s", cfg.Client.DialTimeout+flushGrace)
				}
				return nil
			}
			return runConsole(console)
		},
	}
	root.Flags().StringVar(&configPath, "config", "gopost.yaml", "config file path")
	root.Flags().StringVar(&cmdLine, "cmd", "", "run one console command and exit")
	root.Flags().StringVar(&logPath, "log-path", "", "directory for log files")
	root.Flags().BoolVar(&debug, "debug", false, "enable debug logging")
	return root
}

func runConsole(console *kernel.Console) error {
	help, pl, needConfirm := buildHelp(console.Describe())
	var completer = readline.NewPrefixCompleter(pl...)
	l, err := readline.NewEx(&readline.Config{
		Prompt:              "(gopost)\033[31m>\033[0m ",
		AutoComplete:        completer,
		InterruptPrompt:     "^C",
		EOFPrompt:           "exit",
		HistorySearchFold:   true,
		FuncFilterInputRune: filterInput,
	})
	if err != nil {
		return err
	}
	defer l.Close()
	log.SetOutput(l.Stderr())

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGTERM)
	defer signal.Stop(sig)
	go func() {
		if _, ok := <-sig; ok {
			l.Close()
		}
	}()

	println("\nwelcome to use gshell\n")
	println("command: help for more information\n")
	println("To exit: \u001B[31mCtrl-C\u001B[0m\n")
	echo := func(s string) { fmt.Fprintln(l.Stdout(), s) }
	for {
		line, err := l.Readline()
		if err == readline.ErrInterrupt {
			if len(line) == 0 {
				break
			} else {
				continue
			}
		} else if err != nil {
			break
		}
		line = strings.TrimSpace(line)
		switch line {
		case "":
		case "help":
			println("commands:\n" + strings.Join(help, "\n"))
		default:
			C := kernel.CutWith(line, ' ')
			if confirmCommit, ok := needConfirm[C[0]]; ok {
				println("ensure to " + confirmCommit + ": " + line + "? [y/n]")
				read, err := l.ReadlineWithDefault("n")
				if err != nil || read != "y" {
					println("cancel " + confirmCommit)
					break
				}
			}
			rs := console.Exec(line, echo)
			if rs.Help {
				println("commands:\n" + strings.Join(help, "\n"))
			} else if rs.Output != "" {
				echo(rs.Output)
			}
		}
	}
	return nil
}

func filterInput(r rune) (rune, bool) {
	switch r {
	// block CtrlZ feature
	case readline.CharCtrlZ:
		return r, false
	}
	return r, true
}

func buildHelp(jsonStr string) ([]string, []readline.PrefixCompleterInterface, map[string]string) {
	var commands map[string]map[string]string
	_ = json.Unmarshal([]byte(jsonStr), &commands)
	pl := []readline.PrefixCompleterInterface{
		readline.PcItem("help"),
	}
	var help []string
	var list []string
	var maxSize, maxArgs int
	for k, v := range commands {
		list = append(list, k)
		if len(k) > maxSize {
			maxSize = len(k)
		}
		if len(v["args"]) > maxArgs {
			maxArgs = len(v["args"])
		}
	}
	sort.Strings(list)
	var needConfirm = make(map[string]string)
	for _, k := range list {
		pl = append(pl, readline.PcItem(k))
		cm := commands[k]
		help = append(help, fmt.Sprintf("    %-"+strconv.Itoa(maxSize)+"s  %-"+strconv.Itoa(maxArgs)+"s  \u001B[35m# %s\033[0m",
			k, cm["args"], cm["commit"]))
		if confirm, ok := cm["confirm"]; ok {
			needConfirm[k] = confirm
		}
	}
	return help, pl, needConfirm
}
