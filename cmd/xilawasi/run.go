package main

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/bytecodealliance/wasmtime-go/v11"
	"github.com/hack-pad/hackpadfs"
	"github.com/hack-pad/hackpadfs/mem"
	osfs "github.com/hack-pad/hackpadfs/os"
	"github.com/spf13/cobra"

	"github.com/xila-project/xilawasi"
	"github.com/xila-project/xilawasi/kernelfs"
)

type exitError struct {
	code int32
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

// namespace returns the kernel's file system: the host directory root, or
// an empty in-memory one when root is empty.
func namespace(root string) (hackpadfs.FS, error) {
	if root == "" {
		return mem.NewFS()
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	fsys := osfs.NewFS()
	dir, err := fsys.FromOSPath(abs)
	if err != nil {
		return nil, fmt.Errorf("root %s: %w", root, err)
	}
	return hackpadfs.Sub(fsys, dir)
}

func parseEnv(vars []string) (map[string]string, error) {
	env := make(map[string]string, len(vars))
	for _, v := range vars {
		name, value, ok := strings.Cut(v, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("malformed environment variable '%v': expected NAME=VALUE", v)
		}
		env[name] = value
	}
	return env, nil
}

func runCommand() *cobra.Command {
	var configPath string
	var root string
	var preopen string
	var env []string
	var debug bool

	command := &cobra.Command{
		Use:   "run [path to module] [args...]",
		Short: "Run a WASI command",
		Long:  "Run a WASI command with its file system served by a Xila kernel.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("root") {
				c.Root = root
			}
			if cmd.Flags().Changed("preopen") {
				c.Preopen = preopen
			}
			if cmd.Flags().Changed("debug") {
				c.Debug = debug
			}
			vars, err := parseEnv(env)
			if err != nil {
				return err
			}
			if c.Env == nil {
				c.Env = vars
			} else {
				for k, v := range vars {
					c.Env[k] = v
				}
			}
			if len(args) > 1 {
				c.Args = args[1:]
			}

			wasm, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			fsys, err := namespace(c.Root)
			if err != nil {
				return err
			}
			kernel := kernelfs.New(fsys,
				kernelfs.WithStdin(cmd.InOrStdin()),
				kernelfs.WithStdout(cmd.OutOrStdout()),
				kernelfs.WithStderr(cmd.ErrOrStderr()),
			)

			w := xilawasi.NewWASI(
				xilawasi.WithArgs(append([]string{filepath.Base(args[0])}, c.Args...)),
				xilawasi.WithEnv(c.Env),
				xilawasi.WithKernel(kernel),
				xilawasi.WithPreopen(c.Preopen),
				xilawasi.WithLogger(log.New(cmd.ErrOrStderr(), "xilawasi: ", log.LstdFlags)),
				xilawasi.WithDebug(c.Debug),
			)
			defer w.Close()
			return execute(wasm, w)
		},
	}

	command.Flags().StringVarP(&configPath, "config", "c", "", "path to a YAML run configuration")
	command.Flags().StringVarP(&root, "root", "r", "", "host directory served as the kernel root (default: empty in-memory file system)")
	command.Flags().StringVarP(&preopen, "preopen", "p", "/", "directory preopened for the guest as fd 3; empty disables it")
	command.Flags().StringArrayVarP(&env, "env", "e", nil, "set a guest environment variable (NAME=VALUE)")
	command.Flags().BoolVarP(&debug, "debug", "d", false, "log every WASI call and failing kernel result")

	return command
}

// execute instantiates wasm and runs its _start export. A proc_exit with a
// non-zero status is returned as *exitError.
func execute(wasm []byte, w *xilawasi.WASI) error {
	engine := wasmtime.NewEngine()
	store := wasmtime.NewStore(engine)
	module, err := wasmtime.NewModule(engine, wasm)
	if err != nil {
		return err
	}
	linker := wasmtime.NewLinker(engine)
	if err := w.Link(store, linker); err != nil {
		return err
	}
	instance, err := linker.Instantiate(store, module)
	if err != nil {
		return err
	}
	start := instance.GetFunc(store, "_start")
	if start == nil {
		return errors.New("module has no _start export")
	}
	_, err = start.Call(store)
	if code, exited := w.ExitCode(); exited {
		if code != 0 {
			return &exitError{code: code}
		}
		return nil
	}
	return err
}
