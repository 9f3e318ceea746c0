// rbf scrambles and restores RGB images with the rotating bitplane frame
// transform, and compares results with PSNR and luma histograms.
//
//	rbf encode  -in img.png -out enc.png -keys keys.json [-rounds 3] [-bits 128] [-seed N]
//	rbf decode  -in enc.png -out dec.png -keys keys.json
//	rbf analyze -orig img.png -enc enc.png [-dec dec.png]
package main

import (
	"fmt"
	"os"
)

func usage() {
	fmt.Fprintf(os.Stderr, "usage: rbf <encode|decode|analyze> [flags]\n")
	fmt.Fprintf(os.Stderr, "run 'rbf <command> -h' for command flags\n")
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	args := os.Args[2:]
	switch os.Args[1] {
	case "encode":
		err = runEncode(args, os.Stdin, os.Stdout)
	case "decode":
		err = runDecode(args, os.Stdin, os.Stdout)
	case "analyze":
		err = runAnalyze(args, os.Stdout)
	case "-h", "--help", "help":
		usage()
		return
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "rbf %v: %v\n", os.Args[1], err)
		os.Exit(1)
	}
}
