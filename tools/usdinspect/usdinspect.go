package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/mogaika/usd_exporter/usd"
	"github.com/mogaika/usd_exporter/utils"
)

func printTree(w io.Writer, sum *usd.StageSummary) {
	fmt.Fprintf(w, "upAxis %s, %v fps", sum.UpAxis, sum.TimeCodesPerSecond)
	if sum.EndTimeCode != sum.StartTimeCode {
		fmt.Fprintf(w, ", frames %v..%v", sum.StartTimeCode, sum.EndTimeCode)
	}
	fmt.Fprintln(w)
	for _, p := range sum.Prims {
		depth := strings.Count(string(p.Path), "/") - 1
		fmt.Fprintf(w, "%s%s", strings.Repeat("  ", depth), p.Path.Name())
		if p.Type != "" {
			fmt.Fprintf(w, " [%s]", p.Type)
		}
		if p.Path == sum.DefaultPrim {
			fmt.Fprint(w, " (default)")
		}
		if p.Kind != "" {
			fmt.Fprintf(w, " kind=%s", p.Kind)
		}
		if p.Material != "" {
			fmt.Fprintf(w, " material=%s", p.Material)
		}
		if p.TimeSamples != 0 {
			fmt.Fprintf(w, " samples=%d", p.TimeSamples)
		}
		fmt.Fprintln(w)
	}
}

func main() {
	var asJson, dump bool
	var depth int
	flag.BoolVar(&asJson, "json", false, "Print summary as json")
	flag.BoolVar(&dump, "dump", false, "Dump the parsed stage")
	flag.IntVar(&depth, "depth", 6, "Nesting limit for -dump, 0 for unlimited")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: usdinspect [-json] [-dump [-depth n]] file.usda")
		flag.PrintDefaults()
		os.Exit(2)
	}

	stage, err := usd.Open(flag.Arg(0))
	if err != nil {
		log.Fatal(err)
	}
	if dump {
		utils.FDump(os.Stdout, depth, stage)
	}

	sum := usd.Summarize(stage)
	if asJson {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(sum); err != nil {
			log.Fatal(err)
		}
		return
	}
	printTree(os.Stdout, sum)
}
