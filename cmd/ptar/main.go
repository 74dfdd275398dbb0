// Command ptar archives and extracts file trees with parallel workers.
//
// Usage:
//
//	ptar -c -f archive.tar path...     create
//	ptar -x -f archive.tar             extract into the current directory
//	ptar -t -f archive.tar             list
//
// Extraction and listing of archives that lack the ptar offset index
// hand the process over to the system tar utility.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"

	"golang.org/x/sys/unix"

	"github.com/meigma/ptar"
)

type config struct {
	create         bool
	extract        bool
	list           bool
	file           bool
	verbose        bool
	nthreads       int
	blockingFactor int
}

func parseFlags() (config, []string) {
	var cfg config
	flag.BoolVar(&cfg.create, "c", false, "create an archive")
	flag.BoolVar(&cfg.extract, "x", false, "extract an archive into the current directory")
	flag.BoolVar(&cfg.list, "t", false, "list archive contents")
	flag.BoolVar(&cfg.file, "f", false, "use the archive named by the first argument")
	flag.BoolVar(&cfg.verbose, "v", false, "print one line per processed entry")
	flag.IntVar(&cfg.nthreads, "nthreads", ptar.DefaultWorkers, "number of worker threads")
	flag.IntVar(&cfg.blockingFactor, "blocking-factor", ptar.DefaultBlockingFactor, "read/write chunk size in 4096-byte units")
	flag.Parse()
	return cfg, flag.Args()
}

func main() {
	log.SetFlags(0)
	cfg, args := parseFlags()

	modes := 0
	for _, on := range []bool{cfg.create, cfg.extract, cfg.list} {
		if on {
			modes++
		}
	}
	// Inconsistent flag combinations exit silently without action.
	if modes != 1 || !cfg.file || len(args) < 1 {
		return
	}
	archive := args[0]

	var verbose io.Writer
	if cfg.verbose {
		verbose = os.Stdout
	}

	ctx := context.Background()
	switch {
	case cfg.create:
		if len(args) < 2 {
			return
		}
		runCreate(ctx, cfg, archive, args[1:], verbose)
	case cfg.extract:
		runExtract(ctx, cfg, archive, verbose)
	case cfg.list:
		runList(cfg, archive)
	}
}

func runCreate(ctx context.Context, cfg config, archive string, roots []string, verbose io.Writer) {
	opts := []ptar.CreateOption{
		ptar.CreateWithWorkers(cfg.nthreads),
		ptar.CreateWithBlockingFactor(cfg.blockingFactor),
	}
	if verbose != nil {
		opts = append(opts, ptar.CreateWithVerbose(verbose))
	}
	if err := ptar.Create(ctx, archive, roots, opts...); err != nil {
		log.Fatal(err)
	}
}

func runExtract(ctx context.Context, cfg config, archive string, verbose io.Writer) {
	opts := []ptar.ExtractOption{
		ptar.ExtractWithWorkers(cfg.nthreads),
		ptar.ExtractWithBlockingFactor(cfg.blockingFactor),
	}
	if verbose != nil {
		opts = append(opts, ptar.ExtractWithVerbose(verbose))
	}
	err := ptar.Extract(ctx, archive, ".", opts...)
	if errors.Is(err, ptar.ErrNotPtarArchive) {
		log.Fatal(execTar("x", archive, cfg.verbose))
	}
	if err != nil {
		log.Fatal(err)
	}
}

func runList(cfg config, archive string) {
	entries, err := ptar.List(archive)
	if errors.Is(err, ptar.ErrNotPtarArchive) {
		log.Fatal(execTar("t", archive, cfg.verbose))
	}
	if err != nil {
		log.Fatal(err)
	}
	for _, e := range entries {
		if cfg.verbose {
			fmt.Printf("%s %8d %s %s\n",
				e.Mode, e.Size, e.ModTime.Format("2006-01-02 15:04"), e.Name)
			continue
		}
		fmt.Println(e.Name)
	}
}

// execTar replaces the process image with the system tar so its exit
// status becomes ours. It returns only when the handoff fails.
func execTar(op, archive string, verbose bool) error {
	path, err := exec.LookPath("tar")
	if err != nil {
		return err
	}
	flags := op + "f"
	if verbose {
		flags += "v"
	}
	return unix.Exec(path, []string{"tar", flags, archive}, os.Environ())
}
