package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/afero"

	fat32 "github.com/l09dm0zgus/fat32-emulation"
)

// shellState is the REPL's mutable context, threaded through the
// dispatcher as a value rather than held in package globals.
type shellState struct {
	fs      *fat32.FS
	cwd     string // '/'-separated, always starts with '/'
	imgPath string
	in      *bufio.Scanner
}

func runShell(imgPath string) error {
	osFs := afero.NewOsFs()

	var dev fat32.Device
	var volume *fat32.FS
	var err error

	if exists, statErr := afero.Exists(osFs, imgPath); statErr == nil && exists {
		dev, err = fat32.OpenDevice(osFs, imgPath)
		if err != nil {
			return err
		}
		volume, err = fat32.Open(dev)
	} else {
		dev, err = fat32.CreateDevice(osFs, imgPath, fat32.DefaultDiskSize)
		if err != nil {
			return err
		}
		volume, err = fat32.Create(dev, fat32.DefaultDiskSize)
	}
	if err != nil {
		return err
	}

	state := &shellState{fs: volume, cwd: "/", imgPath: imgPath, in: bufio.NewScanner(os.Stdin)}
	// Close whichever FS is current at exit: "format" replaces state.fs,
	// and the pre-format FS's caches must not be flushed over the new
	// volume.
	defer func() { _ = state.fs.Close() }()

	fmt.Printf("fat32shell: opened %q (label %q)\n", imgPath, volume.Label())
	fmt.Println("type 'help' for a list of commands")

	for {
		fmt.Printf("%s> ", state.cwd)
		if !state.in.Scan() {
			break
		}
		line := strings.TrimSpace(state.in.Text())
		if line == "" {
			continue
		}

		if quit := dispatch(state, line); quit {
			break
		}
	}

	return nil
}

// dispatch executes one REPL line against state, returning true if the
// shell should exit. Each command is a plain case: cobra's flag/arg
// model is not re-entered per line, per the shell being out-of-core.
// Programmer-invariant violations (a duplicate LFN ordinal or a Bad/Null
// cluster encountered mid-chain, both panics raised by dirstream.go) are
// recovered here rather than at runLs/runCd/etc. so one bad command
// cannot take down the REPL.
func dispatch(state *shellState, line string) (quit bool) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Println("fatal:", r)
			quit = false
		}
	}()

	fields := strings.Fields(line)
	cmd := fields[0]
	args := fields[1:]

	switch cmd {
	case "exit", "e":
		return true

	case "help":
		printHelp()

	case "ls":
		runLs(state)

	case "cd":
		if len(args) != 1 {
			fmt.Println("usage: cd <name|/>")
			return false
		}
		runCd(state, args[0])

	case "mkdir":
		if len(args) != 1 {
			fmt.Println("usage: mkdir <name>")
			return false
		}
		runCreate(state, args[0], fat32.AttrDirectory)

	case "touch":
		if len(args) != 1 {
			fmt.Println("usage: touch <name>")
			return false
		}
		runCreate(state, args[0], fat32.AttrArchive)

	case "format":
		runFormat(state)

	default:
		fmt.Printf("unknown command %q, type 'help'\n", cmd)
	}

	return false
}

func printHelp() {
	fmt.Println(`commands:
  ls             list the current directory
  cd <name|/>    change into a subdirectory, or / for the root
  mkdir <name>   create a subdirectory in the current directory
  touch <name>   create an empty file in the current directory
  format         reformat the open image, discarding its contents
  help           show this message
  exit, e        leave the shell`)
}

func runLs(state *shellState) {
	addr, err := resolveAddress(state)
	if err != nil {
		fmt.Println("ls:", err)
		return
	}

	entries, err := state.fs.ReadDirectory(addr)
	if err != nil {
		fmt.Println("ls:", err)
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
	fmt.Fprintln(w, "FILE NAME\tLONG FILE NAME\tSIZE\tATTRS.\tCREAT. DATE & TIME")
	for _, entry := range entries {
		if entry.Entry.IsVolumeLabel() {
			continue
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n",
			strings.TrimSpace(string(entry.Entry.FileName[:])),
			entry.LongName,
			entry.Entry.FileSize,
			attrString(entry.Entry),
			entry.Entry.CreationDateTime().Format("2006-01-02 15:04:05"),
		)
	}
	w.Flush()
}

func attrString(e fat32.ShortDirEntry) string {
	switch {
	case e.IsDirectory():
		return "DIR"
	default:
		return "FILE"
	}
}

func runCd(state *shellState, target string) {
	if target == "/" {
		state.cwd = "/"
		return
	}

	addr, err := resolveAddress(state)
	if err != nil {
		fmt.Println("cd:", err)
		return
	}

	entry, err := state.fs.FindInDirectory(addr, target)
	if err != nil {
		fmt.Println("cd:", err)
		return
	}
	if !entry.Entry.IsDirectory() {
		fmt.Println("cd: not a directory")
		return
	}

	state.cwd = joinPath(state.cwd, target)
}

func runCreate(state *shellState, name string, attr byte) {
	if err := state.fs.CreateDirectoryEntry(state.cwd, name, 0, attr); err != nil {
		fmt.Println("error:", err)
	}
}

func runFormat(state *shellState) {
	fmt.Println("this discards all data on the image, type 'yes' to confirm")
	if !state.in.Scan() || strings.TrimSpace(state.in.Text()) != "yes" {
		fmt.Println("format cancelled")
		return
	}

	newFS, err := fat32.Format(state.fs.Device(), state.fs.Device().Size())
	if err != nil {
		fmt.Println("format:", err)
		return
	}
	state.fs = newFS
	state.cwd = "/"
	fmt.Println("formatted", state.imgPath)
}

// resolveAddress returns state.cwd's directory data address.
func resolveAddress(state *shellState) (int64, error) {
	if state.cwd == "/" {
		return state.fs.RootDirectoryAddress(), nil
	}
	entry, err := state.fs.OpenPath(state.cwd)
	if err != nil {
		return 0, err
	}
	if !entry.Entry.IsDirectory() {
		return 0, errors.New("not a directory")
	}
	return state.fs.DataAddressOf(entry.Entry.FirstCluster()), nil
}

func joinPath(cwd, name string) string {
	if cwd == "/" {
		return "/" + name
	}
	return cwd + "/" + name
}
