package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"insomnia-keeper/internal/infra/config"
)

// runEncrypt encrypts the value given as the only argument, or the first
// line of stdin, with KEEPER_CONFIG_KEY and prints the "enc:" form.
func runEncrypt(args []string, stdin io.Reader, stdout io.Writer) error {
	passphrase := os.Getenv("KEEPER_CONFIG_KEY")
	if passphrase == "" {
		return errors.New("KEEPER_CONFIG_KEY is not set")
	}

	var value string
	switch len(args) {
	case 0:
		line, err := bufio.NewReader(stdin).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("read value: %w", err)
		}
		value = strings.TrimRight(line, "\r\n")
	case 1:
		value = args[0]
	default:
		return errors.New("usage: keeper encrypt [VALUE]")
	}
	if value == "" {
		return errors.New("empty value")
	}

	enc, err := config.EncryptValue(value, passphrase)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(stdout, config.EncryptedPrefix+enc)
	return err
}
