package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"chat-mesh/domain"

	"github.com/dgraph-io/badger/v4"
	"github.com/gookit/color"
	"github.com/kelseyhightower/envconfig"
	"github.com/olekukonko/tablewriter"
)

type Config struct {
	BadgerFilepath string `envconfig:"BADGER_FILEPATH" required:"true"`
	// VIEWER_COLOURS enables colorized section headers for readability
	Colours bool `envconfig:"VIEWER_COLOURS" default:"true"`
}

// Read-only inspector for the shared event store: dumps the message and
// call collections as tables without disturbing a running session.
func main() {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		log.Fatalf("Config error: %v", err)
	}

	// BypassLockGuard allows opening while a session holds the lock
	opts := badger.DefaultOptions(cfg.BadgerFilepath).
		WithReadOnly(true).
		WithBypassLockGuard(true).
		WithLoggingLevel(badger.WARNING)

	db, err := badger.Open(opts)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	printHeader(cfg, "MESSAGES")
	if err := printMessages(db); err != nil {
		log.Fatalf("Message scan failed: %v", err)
	}

	printHeader(cfg, "CALLS")
	if err := printCalls(db); err != nil {
		log.Fatalf("Call scan failed: %v", err)
	}
}

func printHeader(cfg Config, name string) {
	header := fmt.Sprintf("  ====== %s ======", name)
	if cfg.Colours {
		header = color.New(color.BgBlack, color.FgGreen).Render(header)
	}
	fmt.Println(header)
}

func newTable(headers []string) *tablewriter.Table {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader(headers)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")
	return table
}

func printMessages(db *badger.DB) error {
	table := newTable([]string{"Timestamp", "From", "To", "Read", "Content"})
	err := scan(db, "msg:", func(value []byte) {
		var m domain.ChatMessage
		if err := json.Unmarshal(value, &m); err != nil {
			fmt.Printf("Skipping malformed message row: %v\n", err)
			return
		}
		table.Append([]string{
			m.Timestamp.Format(time.RFC3339),
			m.SenderID,
			m.ReceiverID,
			fmt.Sprintf("%t", m.Read),
			m.Content,
		})
	})
	if err != nil {
		return err
	}
	table.Render()
	return nil
}

func printCalls(db *badger.DB) error {
	table := newTable([]string{"Start", "Caller", "Receiver", "Status", "End"})
	err := scan(db, "call:", func(value []byte) {
		var c domain.Call
		if err := json.Unmarshal(value, &c); err != nil {
			fmt.Printf("Skipping malformed call row: %v\n", err)
			return
		}
		end := ""
		if c.EndTime != nil {
			end = c.EndTime.Format(time.RFC3339)
		}
		table.Append([]string{
			c.StartTime.Format(time.RFC3339),
			c.CallerID,
			c.ReceiverID,
			string(c.Status),
			end,
		})
	})
	if err != nil {
		return err
	}
	table.Render()
	return nil
}

func scan(db *badger.DB, prefix string, fn func(value []byte)) error {
	return db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefixBytes := []byte(prefix)
		for it.Seek(prefixBytes); it.ValidForPrefix(prefixBytes); it.Next() {
			err := it.Item().Value(func(v []byte) error {
				fn(v)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
}
