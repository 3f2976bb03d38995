package dispatch

import (
	"context"
	"encoding/json"
	"os"
	"sync"
	"time"
)

// FileDispatcher appends composition records to a JSONL file.
type FileDispatcher struct {
	mu   sync.Mutex
	file *os.File
	enc  *json.Encoder
}

// NewFileDispatcher creates a FileDispatcher writing to path.
func NewFileDispatcher(path string) (*FileDispatcher, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	return &FileDispatcher{file: f, enc: json.NewEncoder(f)}, nil
}

func (d *FileDispatcher) write(rec Record) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	rec.Timestamp = time.Now().UTC()
	return d.enc.Encode(rec)
}

// ComposeSMS logs an SMS composition record.
func (d *FileDispatcher) ComposeSMS(ctx context.Context, phoneNumber, body string) error {
	return d.write(Record{Channel: ChannelSMS, Target: phoneNumber, Body: body})
}

// ComposeEmail logs an email composition record.
func (d *FileDispatcher) ComposeEmail(ctx context.Context, address, subject, body string) error {
	return d.write(Record{Channel: ChannelEmail, Target: address, Subject: subject, Body: body})
}

// ComposeCall logs a dial composition record.
func (d *FileDispatcher) ComposeCall(ctx context.Context, phoneNumber string) error {
	return d.write(Record{Channel: ChannelCall, Target: phoneNumber})
}

// Close closes the underlying file.
func (d *FileDispatcher) Close() error {
	return d.file.Close()
}
