// Command encrypt-secret seals a value for config.yaml.
//
// Usage:
//
//	ENCRYPTION_KEY="$(openssl rand -base64 32)" encrypt-secret < token.txt
//	encrypt-secret --decrypt 'enc:...'
//
// The output is an "enc:..." string the bot opens at startup with the same
// ENCRYPTION_KEY.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/onnwee/minilodon/secret"
)

func main() {
	decrypt := flag.Bool("decrypt", false, "Open a sealed value instead of sealing one")
	flag.Parse()

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})))

	box, err := secret.NewBox(os.Getenv("ENCRYPTION_KEY"))
	if err != nil {
		slog.Error("failed to initialize encryptor", slog.Any("error", err))
		os.Exit(1)
	}

	in := strings.Join(flag.Args(), " ")
	if in == "" {
		if in, err = readLine(os.Stdin); err != nil {
			slog.Error("read input", slog.Any("error", err))
			os.Exit(1)
		}
	}

	out, err := transform(box, in, *decrypt)
	if err != nil {
		slog.Error("transform failed", slog.Any("error", err))
		os.Exit(1)
	}
	fmt.Println(out)
}

func readLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func transform(box *secret.Box, in string, decrypt bool) (string, error) {
	if decrypt {
		return box.Open(in)
	}
	return box.Seal(in)
}
