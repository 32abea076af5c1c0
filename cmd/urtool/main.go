package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/goatnetwork/qlink/internal/keystone"
	"github.com/goatnetwork/qlink/internal/keystone/multipart"
	"github.com/goatnetwork/qlink/internal/render"
	log "github.com/sirupsen/logrus"
)

func main() {
	var (
		chain          = flag.String("type", "", "Sign request chain: eth, sol, hbar, stellar, xrp")
		data           = flag.String("data", "", "Sign data in hex, or the transaction JSON for xrp")
		path           = flag.String("path", "", "Derivation path, defaults to the chain's first account")
		chainID        = flag.Int64("chain-id", 1, "EVM chain id for eth requests")
		origin         = flag.String("origin", "", "Requesting application name")
		maxFragmentLen = flag.Int("max-fragment-len", multipart.DefaultMaxFragmentLen, "Max characters per QR frame")
		animate        = flag.Bool("animate", false, "Cycle through the fragments until interrupted")
		delay          = flag.Duration("delay", multipart.RecommendedFrameDelay, "Frame delay for -animate")
		decodeFile     = flag.String("decode", "", "Decode a file of UR fragments, one per line")
		jsonOut        = flag.Bool("json", false, "Print decoded payloads as JSON")
		help           = flag.Bool("help", false, "Show help message")
	)
	flag.Parse()

	if *help {
		fmt.Println("Usage: urtool [options]")
		fmt.Println("Options:")
		flag.PrintDefaults()
		os.Exit(0)
	}

	if *decodeFile != "" {
		if err := decodeFragments(*decodeFile, *jsonOut); err != nil {
			log.Fatalf("Failed to decode %s: %v", *decodeFile, err)
		}
		return
	}

	if *chain == "" {
		log.Fatal("Chain type is required. Use -type flag.")
	}

	msg, err := buildRequest(requestParams{
		Chain:   *chain,
		Data:    *data,
		Path:    *path,
		ChainID: *chainID,
		Origin:  *origin,
	})
	if err != nil {
		log.Fatalf("Failed to build sign request: %v", err)
	}
	payload, err := keystone.EncodeMessage(msg)
	if err != nil {
		log.Fatalf("Failed to encode sign request: %v", err)
	}
	enc, err := multipart.NewPayloadEncoder(payload, *maxFragmentLen)
	if err != nil {
		log.Fatalf("Failed to fragment sign request: %v", err)
	}

	if !*animate {
		for _, part := range enc.AllParts() {
			fmt.Println(part)
		}
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	animateParts(ctx, enc, *delay)
}

func animateParts(ctx context.Context, enc *multipart.Encoder, delay time.Duration) {
	ticker := time.NewTicker(delay)
	defer ticker.Stop()
	for {
		part := enc.NextPart()
		fmt.Printf("[%d/%d] %s\n", part.PartNumber, part.TotalParts, part.URString)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// decodeFragments feeds every line of path into one decoder and prints the
// payload once it is complete.
func decodeFragments(path string, jsonOut bool) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	dec := multipart.NewDecoder()
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 4096), 1<<20)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		progress, err := dec.Receive(line)
		if err != nil {
			log.Warnf("Skipping fragment: %v", err)
			continue
		}
		if progress.Complete {
			break
		}
	}
	if err := sc.Err(); err != nil {
		return err
	}

	payload, err := dec.Result()
	if err != nil {
		return fmt.Errorf("%w: %s", err, dec.Progress().Message())
	}
	rendered := render.Render(payload)
	if jsonOut {
		out, err := json.MarshalIndent(rendered.JSON, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	}
	for _, line := range rendered.Human {
		fmt.Println(line)
	}
	return nil
}
