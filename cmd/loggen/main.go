// Command loggen appends generated log lines to a file so a local logwarden
// instance has something to tail.
package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"time"

	"github.com/google/uuid"
)

var templates = []struct {
	level string
	msg   string
}{
	{"INFO", "request completed path=/api/orders status=200 duration=%dms"},
	{"INFO", "cache refreshed entries=%d"},
	{"WARN", "slow query took %dms table=orders"},
	{"ERROR", "payment gateway timeout after %dms"},
	{"ERROR", "connection refused to db-primary:5432 attempt=%d"},
	{"FATAL", "out of memory: killed worker pid=%d"},
}

func main() {
	path := flag.String("file", "data/sample.log", "file to append to")
	count := flag.Int("n", 20, "number of lines to write (0 runs until interrupted)")
	interval := flag.Duration("interval", 500*time.Millisecond, "delay between lines")
	jsonFmt := flag.Bool("json", false, "write JSON lines instead of plain text")
	flag.Parse()

	f, err := os.OpenFile(*path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		log.Fatalf("open %s: %v", *path, err)
	}
	defer f.Close()

	for i := 0; *count == 0 || i < *count; i++ {
		t := templates[rand.Intn(len(templates))]
		msg := fmt.Sprintf(t.msg, rand.Intn(5000))
		now := time.Now().UTC().Format(time.RFC3339)

		var line string
		if *jsonFmt {
			line = fmt.Sprintf(`{"time":%q,"level":%q,"msg":%q,"trace_id":%q}`, now, t.level, msg, uuid.NewString())
		} else {
			line = fmt.Sprintf("%s %s %s trace_id=%s", now, t.level, msg, uuid.NewString())
		}
		if _, err := fmt.Fprintln(f, line); err != nil {
			log.Fatalf("write: %v", err)
		}
		time.Sleep(*interval)
	}
	fmt.Printf("✓ wrote %d lines to %s\n", *count, *path)
}
