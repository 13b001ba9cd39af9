// Command interbench sweeps the interaction-kernel benchmark across problem
// shapes, data types and pass directions, streaming one CSV row per trial.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/schollz/progressbar/v3"
	"k8s.io/klog/v2"

	"github.com/LynnColeArt/interbench"
	"github.com/LynnColeArt/interbench/device"
)

var archByName = map[string]device.Arch{
	"gfx908":  device.ArchGfx908,
	"gfx90a":  device.ArchGfx90A,
	"gfx940":  device.ArchGfx940,
	"gfx1100": device.ArchGfx1100,
	"gfx1101": device.ArchGfx1101,
	"gfx1102": device.ArchGfx1102,
}

func main() {
	klog.InitFlags(nil)
	var (
		mode    = flag.String("mode", "bench", "run mode: bench or validate")
		archStr = flag.String("arch", "", "emulated architecture (default: host-derived)")
		output  = flag.String("o", "", "output file for CSV rows (default: stdout)")
		tblockX = flag.Int("tblock", 128, "thread-block X dimension")
		batches = flag.String("batches", "1,8", "comma-separated batch sizes")
		sizes   = flag.String("sizes", "16,32,64,128,256", "comma-separated M=K problem sizes")
	)
	flag.Parse()

	runMode := interbench.ModeBenchmark
	if *mode == "validate" {
		runMode = interbench.ModeValidate
	}

	var dev *device.Device
	if *archStr != "" {
		arch, ok := archByName[strings.ToLower(*archStr)]
		if !ok {
			log.Fatalf("unknown architecture %q", *archStr)
		}
		dev = device.Profile(arch)
	} else {
		dev = device.Default()
	}

	out := os.Stdout
	if *output != "" {
		f, err := os.Create(*output)
		if err != nil {
			log.Fatalf("creating output file: %v", err)
		}
		defer f.Close()
		out = f
	}

	ctx := device.NewContext(dev)
	defer ctx.Destroy()
	session := interbench.NewReportSession(out, runMode)

	fmt.Fprintf(os.Stderr, "device: %s (host SIMD: %s)\n", dev, device.HostSIMD())

	dims := parseInts(*sizes)
	bs := parseInts(*batches)
	variants := interbench.Variants()
	total := len(variants) * len(dims) * len(bs) * 2

	bar := progressbar.NewOptions(total,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription("sweep"),
		progressbar.OptionShowCount(),
	)

	failed := 0
	for _, v := range variants {
		h := interbench.NewHarness(v, interbench.Options{
			Mode:    runMode,
			Context: ctx,
			Session: session,
		})
		for _, n := range dims {
			for _, b := range bs {
				for _, dir := range []interbench.Direction{interbench.Forward, interbench.Backward} {
					p := interbench.ProblemParams{
						TBlockX: *tblockX, TBlockY: 1,
						M: n, K: n, B: b,
						Direction: dir,
					}
					if err := h.Run(p); err != nil {
						log.Fatalf("trial %s M=%d B=%d %s: %v", v, n, b, dir, err)
					}
					if runMode == interbench.ModeValidate && h.Eligible() && !h.Passed() {
						failed++
					}
					bar.Add(1)
				}
			}
		}
	}
	bar.Finish()
	fmt.Fprintln(os.Stderr)

	fmt.Fprintf(os.Stderr, "peak device memory: %s\n",
		humanize.IBytes(uint64(ctx.Memory().PeakBytes())))
	if failed > 0 {
		log.Fatalf("%d validation failures", failed)
	}
}

func parseInts(csv string) []int {
	var out []int
	for _, part := range strings.Split(csv, ",") {
		var n int
		if _, err := fmt.Sscanf(strings.TrimSpace(part), "%d", &n); err != nil || n <= 0 {
			log.Fatalf("bad list entry %q", part)
		}
		out = append(out, n)
	}
	return out
}
