// Package shell implements the interactive command loop. Its job is
// argument parsing and human-readable reporting; all logic lives in
// the vfs package. Errors are printed and the loop continues.
package shell

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/rodaine/table"

	"github.com/mit-pdos/go-blockfs/logger"
	"github.com/mit-pdos/go-blockfs/vfs"
)

const (
	// defaultFileSize is used when create_file is given no size.
	defaultFileSize = 100
	// maxCreateSize caps the size argument of create_file.
	maxCreateSize = 1048576
)

var quoted = regexp.MustCompile(`"([^"]*)"`)

type Shell struct {
	fs  *vfs.Fs
	out io.Writer
}

func New(fs *vfs.Fs, out io.Writer) *Shell {
	return &Shell{fs: fs, out: out}
}

// Run reads commands from in until exit or EOF.
func (sh *Shell) Run(in io.Reader) {
	fmt.Fprintln(sh.out, "blockfs shell. Type 'help' to see available commands.")
	sc := bufio.NewScanner(in)
	for {
		fmt.Fprint(sh.out, "> ")
		if !sc.Scan() {
			fmt.Fprintln(sh.out)
			return
		}
		if sh.Dispatch(sc.Text()) {
			return
		}
	}
}

// Dispatch executes a single command line and reports whether the
// shell should exit.
func (sh *Shell) Dispatch(line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}
	cmd, args := fields[0], fields[1:]

	var err error
	switch cmd {
	case "help":
		sh.help()
	case "exit":
		fmt.Fprintln(sh.out, "Exiting. Goodbye!")
		return true
	case "create_file":
		err = sh.createFile(args)
	case "create_dir":
		err = sh.oneArg(args, "create_dir <path>", sh.fs.CreateDir)
	case "delete_file":
		err = sh.deleteFile(args)
	case "delete_dir":
		err = sh.deleteDir(args)
	case "write_file":
		err = sh.writeFile(strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), cmd)))
	case "read_file":
		err = sh.readFile(args)
	case "list_dir", "list":
		err = sh.listDir(args)
	case "move_file":
		err = sh.twoArgs(args, "move_file <src> <dst>", sh.fs.MoveFile)
	case "move_dir":
		err = sh.twoArgs(args, "move_dir <src> <dst>", sh.fs.MoveDir)
	case "rename":
		err = sh.twoArgs(args, "rename <path> <newname>", sh.fs.Rename)
	case "stat":
		err = sh.stat(args)
	case "stats":
		fmt.Fprint(sh.out, sh.fs.Store().WriteStats())
	default:
		fmt.Fprintln(sh.out, "Unknown command. Type 'help' for a list of commands.")
	}

	if err != nil {
		fmt.Fprintf(sh.out, "Error: %v\n", err)
		logger.Debug("command failed", "cmd", cmd, "err", err.Error())
	}
	return false
}

func (sh *Shell) help() {
	fmt.Fprintln(sh.out, "Available commands:")
	for _, u := range []string{
		"create_file <path> [size]",
		"create_dir <path>",
		"delete_file <path>",
		"delete_dir <path> [recursive]",
		"write_file <path> <data> [append]",
		"read_file <path>",
		"list_dir <path>",
		"move_file <src> <dst>",
		"move_dir <src> <dst>",
		"rename <path> <newname>",
		"stat <path>",
		"stats",
		"help",
		"exit",
	} {
		fmt.Fprintf(sh.out, "  %s\n", u)
	}
}

func (sh *Shell) oneArg(args []string, usage string, op func(string) error) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: %s", usage)
	}
	return op(args[0])
}

func (sh *Shell) twoArgs(args []string, usage string, op func(string, string) error) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: %s", usage)
	}
	return op(args[0], args[1])
}

func (sh *Shell) createFile(args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return fmt.Errorf("usage: create_file <path> [size]")
	}
	size := uint64(defaultFileSize)
	if len(args) == 2 {
		n, err := strconv.ParseUint(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid size %q: please provide a positive number", args[1])
		}
		if n == 0 || n >= maxCreateSize {
			return fmt.Errorf("size must be between 1 and %d", maxCreateSize)
		}
		size = n
	} else {
		fmt.Fprintf(sh.out, "Default file size is %d.\n", defaultFileSize)
	}
	return sh.fs.CreateFile(args[0], size)
}

func (sh *Shell) deleteFile(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: delete_file <path>")
	}
	path := args[0]
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return sh.fs.DeleteFile(path)
}

func (sh *Shell) deleteDir(args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return fmt.Errorf("usage: delete_dir <path> [recursive]")
	}
	recursive := true
	if len(args) == 2 && args[1] == "false" {
		recursive = false
	}
	return sh.fs.DeleteDir(args[0], recursive)
}

// writeFile parses `<path> <data...> [append]`: a trailing true/false
// token sets the append flag (default true), and data may be quoted to
// preserve spaces or the literal words true/false.
func (sh *Shell) writeFile(rest string) error {
	i := strings.IndexAny(rest, " \t")
	if i < 0 {
		return fmt.Errorf("usage: write_file <path> <data> [append]")
	}
	path := rest[:i]
	data := strings.TrimSpace(rest[i+1:])

	doAppend := true
	if strings.HasSuffix(data, " true") {
		data = strings.TrimSpace(strings.TrimSuffix(data, " true"))
	} else if strings.HasSuffix(data, " false") {
		doAppend = false
		data = strings.TrimSpace(strings.TrimSuffix(data, " false"))
	}
	if m := quoted.FindStringSubmatch(data); m != nil {
		data = m[1]
	}
	return sh.fs.WriteFile(path, []byte(data), doAppend)
}

func (sh *Shell) readFile(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: read_file <path>")
	}
	content, err := sh.fs.ReadFile(args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(sh.out, "Contents of %s:\n%s\n", args[0], content)
	return nil
}

func (sh *Shell) listDir(args []string) error {
	path := "/"
	if len(args) > 1 {
		return fmt.Errorf("usage: list_dir <path>")
	}
	if len(args) == 1 {
		path = args[0]
	}
	names, err := sh.fs.ListDir(path)
	if err != nil {
		return err
	}
	fmt.Fprintf(sh.out, "Contents of %s:\n", vfs.ResolvePath(path))
	tbl := table.New("name", "kind", "size")
	dir := vfs.ResolvePath(path)
	for _, name := range names {
		child := dir + "/" + name
		if dir == "/" {
			child = "/" + name
		}
		e, err := sh.fs.GetMetadata(child)
		if err != nil {
			return err
		}
		tbl.AddRow(e.Name(), e.Kind.String(), e.Size)
	}
	tbl.WithWriter(sh.out)
	tbl.Print()
	return nil
}

func (sh *Shell) stat(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: stat <path>")
	}
	e, err := sh.fs.GetMetadata(args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(sh.out, "%s: %s, %d bytes, %d blocks\n",
		e.Path, e.Kind, e.Size, len(e.Blocks))
	return nil
}
