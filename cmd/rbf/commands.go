package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"math/rand"
	"os"
	"strings"

	"github.com/mitchellh/go-homedir"

	"rbfvault/internal/imageio"
	"rbfvault/internal/logger"
	"rbfvault/internal/services/analysis"
	"rbfvault/internal/services/scramble"
)

var errNoInput = errors.New("no input image")

// expandPath resolves a leading ~ in user supplied paths.
func expandPath(p string) (string, error) {
	p = strings.TrimSpace(p)
	if p == "" {
		return "", nil
	}
	return homedir.Expand(p)
}

// promptPath asks for a path on in when the flag was left empty.
func promptPath(in io.Reader, out io.Writer, label, current string) (string, error) {
	if current != "" {
		return expandPath(current)
	}
	fmt.Fprint(out, label)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	p, err := expandPath(line)
	if err != nil {
		return "", err
	}
	if p == "" {
		return "", errNoInput
	}
	return p, nil
}

func writeSchedule(path string, sched *scramble.KeySchedule) error {
	b, err := json.MarshalIndent(sched, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(b, '\n'), 0o600)
}

func readSchedule(path string) (*scramble.KeySchedule, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	sched, err := scramble.ParseSchedule(b)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return sched, nil
}

func runEncode(args []string, in io.Reader, out io.Writer) error {
	fs := flag.NewFlagSet("encode", flag.ContinueOnError)
	inPath := fs.String("in", "", "input image (prompted when empty)")
	outPath := fs.String("out", "encrypted.png", "output PNG")
	keysPath := fs.String("keys", "keys_rbf.json", "key schedule output")
	rounds := fs.Int("rounds", scramble.DefaultRounds, "pixel scrambling rounds")
	bits := fs.Int("bits", scramble.DefaultKeyBits, "initial key length in bits")
	seed := fs.Int64("seed", 0, "deterministic key seed (0 uses crypto/rand)")
	k1 := fs.String("k1", "", "initial K1 as a bit string")
	k2 := fs.String("k2", "", "initial K2 as a bit string")
	workers := fs.Int("workers", 0, "parallel workers (0 uses GOMAXPROCS)")
	verbose := fs.Bool("v", false, "debug logging")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if (*k1 == "") != (*k2 == "") {
		return errors.New("-k1 and -k2 must be given together")
	}

	lg := logger.NewCLI(*verbose)
	defer lg.Sync()

	src, err := promptPath(in, out, "Enter image path: ", *inPath)
	if err != nil {
		return err
	}
	dst, err := expandPath(*outPath)
	if err != nil {
		return err
	}
	keys, err := expandPath(*keysPath)
	if err != nil {
		return err
	}
	img, err := imageio.Load(src)
	if err != nil {
		return err
	}

	opts := []scramble.Option{scramble.WithRounds(*rounds), scramble.WithKeyBits(*bits), scramble.WithLogger(lg)}
	if *seed != 0 {
		opts = append(opts, scramble.WithRand(rand.New(rand.NewSource(*seed))))
	}
	if *workers > 0 {
		opts = append(opts, scramble.WithWorkers(*workers))
	}
	e := scramble.New(opts...)

	var (
		enc   *scramble.Image
		sched *scramble.KeySchedule
	)
	if *k1 != "" {
		a, err := scramble.ParseKey(*k1)
		if err != nil {
			return fmt.Errorf("-k1: %w", err)
		}
		b, err := scramble.ParseKey(*k2)
		if err != nil {
			return fmt.Errorf("-k2: %w", err)
		}
		enc, sched, err = e.EncodeWithKeys(img, a, b)
		if err != nil {
			return err
		}
	} else if enc, sched, err = e.Encode(img); err != nil {
		return err
	}

	if err := writeSchedule(keys, sched); err != nil {
		return err
	}
	if err := imageio.Save(dst, enc); err != nil {
		return err
	}
	lg.Debugw("encoded", "in", src, "width", img.W, "height", img.H, "rounds", sched.RoundCount())
	fmt.Fprintf(out, "keys saved to %s\nencrypted image saved as %s\n", keys, dst)
	return nil
}

func runDecode(args []string, in io.Reader, out io.Writer) error {
	fs := flag.NewFlagSet("decode", flag.ContinueOnError)
	inPath := fs.String("in", "", "encrypted image (prompted when empty)")
	outPath := fs.String("out", "decrypted.png", "output PNG")
	keysPath := fs.String("keys", "keys_rbf.json", "key schedule written by encode")
	workers := fs.Int("workers", 0, "parallel workers (0 uses GOMAXPROCS)")
	verbose := fs.Bool("v", false, "debug logging")
	if err := fs.Parse(args); err != nil {
		return err
	}

	lg := logger.NewCLI(*verbose)
	defer lg.Sync()

	src, err := promptPath(in, out, "Enter image path: ", *inPath)
	if err != nil {
		return err
	}
	dst, err := expandPath(*outPath)
	if err != nil {
		return err
	}
	keys, err := expandPath(*keysPath)
	if err != nil {
		return err
	}
	sched, err := readSchedule(keys)
	if err != nil {
		return err
	}
	img, err := imageio.Load(src)
	if err != nil {
		return err
	}

	opts := []scramble.Option{scramble.WithLogger(lg)}
	if *workers > 0 {
		opts = append(opts, scramble.WithWorkers(*workers))
	}
	dec, err := scramble.New(opts...).Decode(img, sched)
	if err != nil {
		return err
	}
	if err := imageio.Save(dst, dec); err != nil {
		return err
	}
	fmt.Fprintf(out, "decrypted image saved as %s\n", dst)
	return nil
}

func runAnalyze(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("analyze", flag.ContinueOnError)
	origPath := fs.String("orig", "", "original image")
	encPath := fs.String("enc", "encrypted.png", "encrypted image")
	decPath := fs.String("dec", "", "decrypted image (optional)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *origPath == "" {
		return errors.New("-orig is required")
	}

	load := func(p string) (*scramble.Image, error) {
		p, err := expandPath(p)
		if err != nil {
			return nil, err
		}
		return imageio.Load(p)
	}
	orig, err := load(*origPath)
	if err != nil {
		return err
	}
	enc, err := load(*encPath)
	if err != nil {
		return err
	}
	var dec *scramble.Image
	if *decPath != "" {
		if dec, err = load(*decPath); err != nil {
			return err
		}
	}
	rep, err := analysis.Analyze(orig, enc, dec)
	if err != nil {
		return err
	}
	printReport(out, rep)
	return nil
}

func printReport(out io.Writer, rep analysis.Report) {
	fmt.Fprintln(out, "PSNR results")
	fmt.Fprintf(out, "  original vs encrypted: %s dB\n", rep.PSNROriginalEncrypted)
	if rep.PSNROriginalDecrypted != nil {
		fmt.Fprintf(out, "  original vs decrypted: %s dB\n", *rep.PSNROriginalDecrypted)
	}
	fmt.Fprintln(out, "Histograms (used bins / peak count)")
	fmt.Fprintf(out, "  original:  %s\n", histSummary(rep.Original))
	fmt.Fprintf(out, "  encrypted: %s\n", histSummary(rep.Encrypted))
	if rep.Decrypted != nil {
		fmt.Fprintf(out, "  decrypted: %s\n", histSummary(*rep.Decrypted))
	}
}

func histSummary(h [256]int) string {
	used, peak := 0, 0
	for _, n := range h {
		if n > 0 {
			used++
		}
		if n > peak {
			peak = n
		}
	}
	return fmt.Sprintf("%d / %d", used, peak)
}
