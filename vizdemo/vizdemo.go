// vizdemo exercises the dataset tree and the sketches in-process, without
// any network endpoints, and prints what a visualization front end would
// render.
package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/getlantern/golog"
	"github.com/getlantern/mtime"
	"github.com/getlantern/vizdb/dataset"
	"github.com/getlantern/vizdb/server"
	"github.com/getlantern/vizdb/sketches"
)

var (
	log = golog.LoggerFor("vizdemo")

	partitions       = flag.Int("partitions", 8, "number of partitions in the dataset tree")
	rowsPerPartition = flag.Int("rowsperpartition", 500000, "number of synthetic rows per partition")
	bundleInterval   = flag.Int("bundleinterval", 25000, "rows per progress report at each leaf")
	seed             = flag.Int64("seed", 0, "seed for the synthetic data")
)

func main() {
	flag.Parse()

	ds, err := buildDataSet()
	if err != nil {
		log.Fatal(err)
	}
	totalRows := int64(*partitions) * int64(*rowsPerPartition)
	fmt.Printf("Built dataset tree with %v partitions, %s rows total\n\n",
		*partitions, humanize.Comma(totalRows))

	ctx := context.Background()

	sum := &sketches.SumSketch{Column: "value"}
	elapsed, total, err := timed(ctx, ds, sum)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("sum(value) = %s in %v\n\n", humanize.Commaf(total.(float64)), elapsed)

	hist, err := sketches.NewHistogramSketch(sketches.Buckets{Column: "value", Min: 0, Max: 100, Count: 10}, 0, 0)
	if err != nil {
		log.Fatal(err)
	}
	elapsed, result, err := timed(ctx, ds, hist)
	if err != nil {
		log.Fatal(err)
	}
	h := result.(*sketches.Histogram)
	fmt.Printf("histogram(value) in %v\n", elapsed)
	for i, c := range h.Counts {
		fmt.Printf("  [%5.1f - %5.1f) %s\n", float64(i*10), float64((i+1)*10), humanize.Comma(c))
	}
	fmt.Printf("  missing        %s\n\n", humanize.Comma(h.Missing))

	hh := &sketches.HeavyHittersSketch{MaxSize: 3, Columns: []string{"category"}}
	elapsed, result, err = timed(ctx, ds, hh)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("heavy hitters(category) in %v\n%v\n", elapsed, result.(*sketches.FreqKList))
}

func buildDataSet() (dataset.Dataset, error) {
	leaves := make([]dataset.Dataset, 0, *partitions)
	opts := &dataset.LocalOpts{BundleInterval: *bundleInterval}
	for i := 0; i < *partitions; i++ {
		t, err := server.SyntheticPartition(*rowsPerPartition, *seed+int64(i))
		if err != nil {
			return nil, err
		}
		leaves = append(leaves, dataset.NewLocal(t, opts))
	}
	return dataset.NewParallel(leaves), nil
}

func timed(ctx context.Context, ds dataset.Dataset, s dataset.Sketch) (time.Duration, interface{}, error) {
	sw := mtime.Stopwatch()
	result, err := dataset.BlockingSketch(ctx, ds, s)
	return sw(), result, err
}
