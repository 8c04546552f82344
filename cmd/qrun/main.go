// Command qrun launches qemu-system-x86_64 against a disk image built by
// cmd/mkimage, drains its serial output, and asserts the transcript against
// a YAML scenario file — the hosted side of spec.md §8's end-to-end
// scenarios. Grounded on tinyrange-cc's testrunner (YAML-described test
// cases, a per-case timeout) and on IntuitionAmiga-IntuitionEngine's and
// tinyrange-cc's shared use of golang.org/x/sync/errgroup to run a
// subprocess and its output reader concurrently with clean cancellation.
package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/sync/errgroup"
)

func main() {
	var (
		qemuBin = flag.String("qemu", "qemu-system-x86_64", "path to the QEMU binary")
	)
	flag.Parse()

	paths := flag.Args()
	if len(paths) == 0 {
		fmt.Fprintln(os.Stderr, "usage: qrun [-qemu path] scenario.yaml [scenario.yaml ...]")
		os.Exit(1)
	}

	bar := progressbar.Default(int64(len(paths)), "running scenarios")

	failures := 0
	for _, path := range paths {
		if err := runOne(*qemuBin, path); err != nil {
			fmt.Fprintf(os.Stderr, "qrun: %s: FAIL: %v\n", filepath.Base(path), err)
			failures++
		} else {
			fmt.Printf("qrun: %s: PASS\n", filepath.Base(path))
		}
		bar.Add(1)
	}

	if failures > 0 {
		fmt.Fprintf(os.Stderr, "qrun: %d/%d scenarios failed\n", failures, len(paths))
		os.Exit(1)
	}
}

func runOne(qemuBin, scenarioPath string) error {
	scn, err := LoadScenario(scenarioPath)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), scn.Timeout.Duration())
	defer cancel()

	ramMiB := scn.RAMMiB
	if ramMiB == 0 {
		ramMiB = 128
	}

	cmd := exec.CommandContext(ctx, qemuBin,
		"-machine", "q35",
		"-m", fmt.Sprintf("%d", ramMiB),
		"-drive", fmt.Sprintf("file=%s,format=raw,if=ide", scn.Image),
		"-serial", "stdio",
		"-display", "none",
		"-no-reboot",
	)

	var transcript bytes.Buffer
	cmd.Stdout = &transcript
	cmd.Stderr = &transcript

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return cmd.Run()
	})
	g.Go(func() error {
		<-gctx.Done()
		return nil
	})

	_ = g.Wait() // a context deadline or a clean QEMU exit both end up here; the transcript decides pass/fail either way

	ok, reason := scn.Matches(transcript.String())
	if !ok {
		return fmt.Errorf("%s (transcript %d bytes)", reason, transcript.Len())
	}
	return nil
}
