package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/emersion/go-mbox"

	"github.com/mikey/mail-threat-filter/internal/core"
	"github.com/mikey/mail-threat-filter/internal/mailparse"
)

// loadMessages reads one message per path ("-" is stdin) followed by every
// message of each mbox archive. With neither, a single message is read from stdin.
func loadMessages(paths, mboxes []string, stdin io.Reader) ([]*core.Message, error) {
	if len(paths) == 0 && len(mboxes) == 0 {
		paths = []string{"-"}
	}

	var msgs []*core.Message
	for _, path := range paths {
		msg, err := loadMessage(path, stdin)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, msg)
	}

	for _, path := range mboxes {
		fromArchive, err := loadMbox(path)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, fromArchive...)
	}
	return msgs, nil
}

func loadMessage(path string, stdin io.Reader) (*core.Message, error) {
	r := stdin
	label := "stdin"
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("opening %s: %w", path, err)
		}
		defer f.Close()
		r = f
		label = path
	}

	msg, err := mailparse.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", label, err)
	}
	if msg.ID == "" {
		msg.ID = label
	}
	return msg, nil
}

// loadMbox reads every message of an mbox archive. Messages without a
// Message-ID are labelled path#n, counting from 1.
func loadMbox(path string) ([]*core.Message, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	var msgs []*core.Message
	reader := mbox.NewReader(f)
	for n := 1; ; n++ {
		mr, err := reader.NextMessage()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}

		msg, err := mailparse.Parse(mr)
		if err != nil {
			return nil, fmt.Errorf("%s#%d: %w", path, n, err)
		}
		if msg.ID == "" {
			msg.ID = fmt.Sprintf("%s#%d", path, n)
		}
		msgs = append(msgs, msg)
	}
	return msgs, nil
}
