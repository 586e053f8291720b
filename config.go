package xilawasi

import (
	"log"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/xila-project/xilawasi/xila"
)

type Option func(*WASI)

// WithArgs sets the command line arguments to args.
func WithArgs(args []string) Option {
	return func(wasi *WASI) {
		wasi.args = slices.Clone(args)
	}
}

// WithEnv sets the environment to env, a map of names to values.
func WithEnv(env map[string]string) Option {
	return func(wasi *WASI) {
		if wasi.env == nil {
			wasi.env = make(map[string]string)
		}
		maps.Copy(wasi.env, env)
	}
}

// WithKernel routes every file system and clock call to kernel. Without it
// a kernel with standard streams only is used.
func WithKernel(kernel xila.Kernel) Option {
	return func(wasi *WASI) {
		wasi.kernel = kernel
	}
}

// WithPreopen sets the directory made available to the guest as fd 3,
// under its own name. Relative guest paths resolve inside it. An empty
// path disables it. Defaults to "/".
func WithPreopen(path string) Option {
	return func(wasi *WASI) {
		wasi.preopen = path
	}
}

// WithLogger sets the debug logger. Defaults to log.Default().
func WithLogger(logger *log.Logger) Option {
	return func(wasi *WASI) {
		wasi.logger = logger
	}
}

// WithDebug enables spammy debug logs.
func WithDebug(debug bool) Option {
	return func(wasi *WASI) {
		wasi.debug = debug
	}
}
