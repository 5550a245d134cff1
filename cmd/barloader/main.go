// cmd/barloader imports OHLCV history from a CSV file into the SQLite bar
// table, so the analyzer has something to analyze.
//
// Usage:
//
//	go run ./cmd/barloader --db=data/analysis.db --symbol=RELIANCE --tf=1day --file=reliance_1day.csv
//
// CSV columns: ts,open,high,low,close,volume — ts is RFC3339 or a unix
// second timestamp, rows ordered ascending. A header row is skipped when
// the first field is not parseable as a timestamp.
package main

import (
	"context"
	"encoding/csv"
	"flag"
	"io"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"analysis-enginev1/internal/model"
	sqlitestore "analysis-enginev1/internal/store/sqlite"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)

	dbPath := flag.String("db", "data/analysis.db", "Path to SQLite database")
	symbol := flag.String("symbol", "", "Symbol to import as (required)")
	timeframe := flag.String("tf", "1day", "Timeframe label for the imported bars")
	file := flag.String("file", "", "CSV file to import (required)")
	batch := flag.Int("batch", 500, "Rows per write batch")
	flag.Parse()

	if *symbol == "" || *file == "" {
		flag.Usage()
		os.Exit(2)
	}

	f, err := os.Open(*file)
	if err != nil {
		log.Fatalf("[barloader] open csv: %v", err)
	}
	defer f.Close()

	store, err := sqlitestore.New(sqlitestore.Config{DBPath: *dbPath})
	if err != nil {
		log.Fatalf("[barloader] sqlite open failed: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	r := csv.NewReader(f)
	r.FieldsPerRecord = 6

	sym := strings.ToUpper(*symbol)
	var bars []model.Bar
	total := 0
	line := 0
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			log.Fatalf("[barloader] read csv: %v", err)
		}
		line++

		ts, err := parseTS(rec[0])
		if err != nil {
			if line == 1 {
				continue // header row
			}
			log.Fatalf("[barloader] line %d: bad timestamp %q: %v", line, rec[0], err)
		}

		vals := make([]float64, 5)
		for i := 0; i < 5; i++ {
			v, err := strconv.ParseFloat(strings.TrimSpace(rec[i+1]), 64)
			if err != nil {
				log.Fatalf("[barloader] line %d: bad field %q: %v", line, rec[i+1], err)
			}
			vals[i] = v
		}

		bars = append(bars, model.Bar{
			Symbol: sym, Timeframe: *timeframe, TS: ts,
			Open: vals[0], High: vals[1], Low: vals[2], Close: vals[3], Volume: vals[4],
		})
		if len(bars) >= *batch {
			if err := store.WriteBars(ctx, bars); err != nil {
				log.Fatalf("[barloader] write batch: %v", err)
			}
			total += len(bars)
			bars = bars[:0]
		}
	}
	if len(bars) > 0 {
		if err := store.WriteBars(ctx, bars); err != nil {
			log.Fatalf("[barloader] write batch: %v", err)
		}
		total += len(bars)
	}

	log.Printf("[barloader] imported %d bars for %s %s into %s", total, sym, *timeframe, *dbPath)
}

func parseTS(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(n, 0).UTC(), nil
	}
	return time.Parse(time.RFC3339, s)
}
