// dkv is a small CLI for poking at a diskv store.
//
// Usage:
//
//	dkv [flags]                 Open the store and start the interactive shell
//	dkv [flags] <command>       Run a single command and exit
//
// Flags:
//
//	-c, --config      Config file (HuJSON; default .dkv.json if present)
//	-b, --base-path   Base directory for persisted values
//	-s, --cache-size  Cache ceiling in bytes
//	-w, --workers     Worker count for 'demo'
//	-n, --keys        Keys per worker for 'demo'
//	-v, --verbose     Print cache-event chatter to stderr
//
// Commands:
//
//	put <key> <value>   Persist a value
//	get <key>           Print a value
//	del <key>           Delete a value
//	ls                  List persisted keys
//	info                Show store diagnostics
//	demo                Run concurrent workers over disjoint key ranges
//	repl                Interactive shell (the default)
//
// Configuration can also come from a config file and DKV_* environment
// variables; flags win.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/peterh/liner"
	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/diskv/pkg/diskv"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	flags := flag.NewFlagSet("dkv", flag.ContinueOnError)

	var (
		configPath = flags.StringP("config", "c", "", "config file (HuJSON)")
		basePath   = flags.StringP("base-path", "b", "", "base directory for persisted values")
		cacheSize  = flags.IntP("cache-size", "s", 0, "cache ceiling in bytes")
		workers    = flags.IntP("workers", "w", 2, "worker count for 'demo'")
		keys       = flags.IntP("keys", "n", 10, "keys per worker for 'demo'")
		verbose    = flags.BoolP("verbose", "v", false, "print cache-event chatter to stderr")
	)

	err := flags.Parse(args)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}

		fmt.Fprintln(os.Stderr, "dkv:", err)

		return 2
	}

	cfg, err := LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "dkv:", err)

		return 1
	}

	if flags.Changed("base-path") {
		cfg.BasePath = *basePath
	}

	if flags.Changed("cache-size") {
		cfg.CacheSizeMax = *cacheSize
	}

	err = validateConfig(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "dkv:", err)

		return 1
	}

	opts := diskv.Options{
		BasePath:     cfg.BasePath,
		CacheSizeMax: cfg.CacheSizeMax,
	}

	if *verbose {
		opts.Debugf = func(format string, args ...any) {
			fmt.Fprintf(os.Stderr, format+"\n", args...)
		}
	}

	store, err := diskv.New(opts)
	if err != nil {
		fmt.Fprintln(os.Stderr, "dkv:", err)

		return 1
	}

	defer func() { _ = store.Close() }()

	rest := flags.Args()

	cmd := "repl"
	if len(rest) > 0 {
		cmd = rest[0]
		rest = rest[1:]
	}

	err = dispatch(store, cmd, rest, *workers, *keys)
	if err != nil {
		fmt.Fprintln(os.Stderr, "dkv:", err)

		return 1
	}

	return 0
}

func dispatch(store *diskv.Diskv, cmd string, args []string, workers, keysPerWorker int) error {
	switch cmd {
	case "put":
		if len(args) != 2 {
			return errors.New("usage: dkv put <key> <value>")
		}

		return store.Put(args[0], []byte(args[1]))

	case "get":
		if len(args) != 1 {
			return errors.New("usage: dkv get <key>")
		}

		val, err := store.Get(args[0])
		if err != nil {
			return err
		}

		if val == nil {
			return fmt.Errorf("key %q not found", args[0])
		}

		fmt.Println(string(val))

		return nil

	case "del", "delete":
		if len(args) != 1 {
			return errors.New("usage: dkv del <key>")
		}

		return store.Delete(args[0])

	case "ls":
		return printKeys(os.Stdout, store)

	case "info":
		fmt.Println(store.String())

		return nil

	case "demo":
		return runDemo(store, workers, keysPerWorker)

	case "repl":
		repl := &REPL{store: store}

		return repl.Run()

	default:
		return fmt.Errorf("unknown command %q (try --help)", cmd)
	}
}

func printKeys(w io.Writer, store *diskv.Diskv) error {
	keys, err := store.Keys()
	if err != nil {
		return err
	}

	for _, key := range keys {
		fmt.Fprintln(w, key)
	}

	return nil
}

// runDemo exercises the store from concurrent workers over disjoint key
// ranges: every worker puts its keys, reads them back, then deletes them.
func runDemo(store *diskv.Diskv, workers, keysPerWorker int) error {
	if workers < 1 || keysPerWorker < 1 {
		return errors.New("demo needs --workers >= 1 and --keys >= 1")
	}

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)

	fail := func(err error) {
		mu.Lock()
		defer mu.Unlock()

		errs = append(errs, err)
	}

	for w := range workers {
		wg.Add(1)

		go func() {
			defer wg.Done()

			name := fmt.Sprintf("worker%d", w+1)

			for i := range keysPerWorker {
				key := fmt.Sprintf("%s-k%d", name, i)
				val := "value of key " + key

				fmt.Printf("[%s put] key: %s\n", name, key)

				err := store.Put(key, []byte(val))
				if err != nil {
					fail(fmt.Errorf("%s: put %q: %w", name, key, err))

					return
				}
			}

			for i := range keysPerWorker {
				key := fmt.Sprintf("%s-k%d", name, i)

				val, err := store.Get(key)
				if err != nil {
					fail(fmt.Errorf("%s: get %q: %w", name, key, err))

					return
				}

				fmt.Printf("[%s get] key: %s, val: %s\n", name, key, val)
			}

			for i := range keysPerWorker {
				key := fmt.Sprintf("%s-k%d", name, i)

				fmt.Printf("[%s delete] key: %s\n", name, key)

				err := store.Delete(key)
				if err != nil {
					fail(fmt.Errorf("%s: delete %q: %w", name, key, err))

					return
				}
			}

			fmt.Printf("%s finished\n", name)
		}()
	}

	wg.Wait()

	return errors.Join(errs...)
}

// REPL is the interactive command loop.
type REPL struct {
	store *diskv.Diskv
	liner *liner.State
}

// historyFile returns the path to the history file.
func historyFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	return filepath.Join(home, ".dkv_history")
}

// Run starts the REPL loop.
func (r *REPL) Run() error {
	r.liner = liner.NewLiner()
	defer r.liner.Close()

	r.liner.SetCtrlCAborts(true)
	r.liner.SetCompleter(completer)

	if f, err := os.Open(historyFile()); err == nil {
		_, _ = r.liner.ReadHistory(f)
		_ = f.Close()
	}

	fmt.Println(r.store.String())
	fmt.Println("Type 'help' for available commands.")
	fmt.Println()

	for {
		line, err := r.liner.Prompt("dkv> ")
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
				fmt.Println("\nBye!")

				break
			}

			return fmt.Errorf("reading input: %w", err)
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		r.liner.AppendHistory(line)

		parts := strings.Fields(line)
		cmd := strings.ToLower(parts[0])
		args := parts[1:]

		switch cmd {
		case "exit", "quit", "q":
			fmt.Println("Bye!")

			r.saveHistory()

			return nil

		case "help", "?":
			printREPLHelp()

		case "put":
			r.cmdPut(args)

		case "get":
			r.cmdGet(args)

		case "del", "delete":
			r.cmdDelete(args)

		case "ls", "list", "keys":
			r.cmdKeys()

		case "info":
			fmt.Println(r.store.String())

		default:
			fmt.Printf("Unknown command: %s (type 'help' for commands)\n", cmd)
		}
	}

	r.saveHistory()

	return nil
}

var replCommands = []string{"put", "get", "del", "ls", "info", "help", "exit"}

func completer(line string) []string {
	var out []string

	for _, cmd := range replCommands {
		if strings.HasPrefix(cmd, strings.ToLower(line)) {
			out = append(out, cmd)
		}
	}

	return out
}

func printREPLHelp() {
	fmt.Println("Commands:")
	fmt.Println("  put <key> <value>   Persist a value (value is the rest of the line)")
	fmt.Println("  get <key>           Print a value")
	fmt.Println("  del <key>           Delete a value")
	fmt.Println("  ls                  List persisted keys")
	fmt.Println("  info                Show store diagnostics")
	fmt.Println("  exit                Leave the shell")
}

func (r *REPL) cmdPut(args []string) {
	if len(args) < 2 {
		fmt.Println("usage: put <key> <value>")

		return
	}

	err := r.store.Put(args[0], []byte(strings.Join(args[1:], " ")))
	if err != nil {
		fmt.Println("error:", err)

		return
	}

	fmt.Println("ok")
}

func (r *REPL) cmdGet(args []string) {
	if len(args) != 1 {
		fmt.Println("usage: get <key>")

		return
	}

	val, err := r.store.Get(args[0])
	if err != nil {
		fmt.Println("error:", err)

		return
	}

	if val == nil {
		fmt.Println("(not found)")

		return
	}

	fmt.Println(string(val))
}

func (r *REPL) cmdDelete(args []string) {
	if len(args) != 1 {
		fmt.Println("usage: del <key>")

		return
	}

	err := r.store.Delete(args[0])
	if err != nil {
		fmt.Println("error:", err)

		return
	}

	fmt.Println("ok")
}

func (r *REPL) cmdKeys() {
	err := printKeys(os.Stdout, r.store)
	if err != nil {
		fmt.Println("error:", err)
	}
}

// saveHistory persists command history to disk.
func (r *REPL) saveHistory() {
	if path := historyFile(); path != "" {
		if f, err := os.Create(path); err == nil { //nolint:gosec // history file under $HOME
			_, _ = r.liner.WriteHistory(f)
			_ = f.Close()
		}
	}
}
