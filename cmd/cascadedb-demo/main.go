/*
 * Copyright (c) 2026 Firefly Software Solutions Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

/*
Command cascadedb-demo exercises the kernel end to end against a scratch
disk file: it formats storage, drives the buffer manager through a
pin/unpin cycle, external-sorts a generated dataset, and optimizes a
join between two catalog tables, printing the chosen plan.

This replaces flydb's cluster-discovery and snapshot-dump CLIs, which
have no analog in a single-process teaching kernel; it demonstrates the
same storage/sort/optimizer stack a real client of this module would
drive.
*/
package main

import (
	"encoding/binary"
	"fmt"
	"math/rand"
	"os"

	"cascadedb/internal/catalog"
	"cascadedb/internal/compression"
	"cascadedb/internal/config"
	"cascadedb/internal/logging"
	"cascadedb/internal/optimizer"
	"cascadedb/internal/sort"
	"cascadedb/internal/storage/buffer"
	"cascadedb/internal/storage/disk"
	"cascadedb/pkg/cli"
)

var log = logging.NewLogger("cascadedb-demo")

func main() {
	if err := run(); err != nil {
		cli.PrintError("%v", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.DefaultConfig()
	if err := cfg.Validate(); err != nil {
		return err
	}

	path, err := os.CreateTemp("", "cascadedb-demo-*.db")
	if err != nil {
		return err
	}
	path.Close()
	defer os.Remove(path.Name())

	cli.PrintInfo("formatting storage at %s", path.Name())
	dm, err := disk.Format(path.Name(), 256, cfg.PageSize, cfg.HeaderCacheEntries)
	if err != nil {
		return err
	}
	defer dm.Close()

	bm := buffer.NewManager(dm, cfg.BufferPoolFrames, string(cfg.ReplacementPolicy))
	defer bm.Close()

	if err := demoBufferCycle(bm); err != nil {
		return err
	}
	if err := demoSort(bm, cfg); err != nil {
		return err
	}
	return demoOptimize(cfg)
}

func demoBufferCycle(bm *buffer.Manager) error {
	p, err := bm.NewPage()
	if err != nil {
		return err
	}
	copy(p.Data, []byte("cascadedb"))
	if err := bm.UnpinPage(p, true); err != nil {
		return err
	}
	if err := bm.FlushAllPages(); err != nil {
		return err
	}
	log.Info("buffer pin/unpin cycle complete", "page", fmt.Sprintf("%d", p.ID))
	cli.PrintSuccess("wrote and flushed page %d", p.ID)
	return nil
}

const demoRecordWidth = 8

func demoSort(bm *buffer.Manager, cfg *config.Config) error {
	rng := rand.New(rand.NewSource(1))
	records := make([][]byte, 2000)
	for i := range records {
		rec := make([]byte, demoRecordWidth)
		binary.BigEndian.PutUint32(rec[0:4], uint32(rng.Int31n(100000)))
		binary.BigEndian.PutUint32(rec[4:8], uint32(i))
		records[i] = rec
	}

	cmp := func(a, b []byte) int {
		ka, kb := binary.BigEndian.Uint32(a[0:4]), binary.BigEndian.Uint32(b[0:4])
		switch {
		case ka < kb:
			return -1
		case ka > kb:
			return 1
		default:
			return 0
		}
	}

	sortCfg := sort.Config{
		RecordWidth:   demoRecordWidth,
		HeapSize:      64,
		MaxMergeFanIn: 8,
	}
	if cfg.SortSpillCompression {
		sortCfg.Compression = compression.Config{
			Algorithm: compression.AlgorithmZstd,
			Level:     compression.LevelDefault,
			MinSize:   demoRecordWidth,
		}
		sortCfg.SpillThreshold = cfg.SortSpillThreshold
	}

	run, err := sort.Sort(bm, sort.NewSliceIterator(records), cmp, sortCfg)
	if err != nil {
		return err
	}
	cli.PrintSuccess("external sort produced a run of %d records starting at page %d", run.Count, run.First)
	return nil
}

func demoOptimize(cfg *config.Config) error {
	sailors := &catalog.Table{Name: "Sailors", Cardinality: 10000, Width: 24}
	sid := &catalog.Column{Table: sailors, Name: "sid", Type: catalog.TypeInt, Width: 4, UniqueCardinality: 10000}
	sname := &catalog.Column{Table: sailors, Name: "sname", Type: catalog.TypeString, Width: 20, UniqueCardinality: 9800}
	sailors.Columns = []*catalog.Column{sid, sname}
	sailors.PrimaryKey = catalog.Key{sid}

	reserves := &catalog.Table{Name: "Reserves", Cardinality: 100000, Width: 8}
	rsid := &catalog.Column{Table: reserves, Name: "sid", Type: catalog.TypeInt, Width: 4, UniqueCardinality: 9500}
	bid := &catalog.Column{Table: reserves, Name: "bid", Type: catalog.TypeInt, Width: 4, UniqueCardinality: 500}
	reserves.Columns = []*catalog.Column{rsid, bid}
	reserves.ForeignKeys = []*catalog.ForeignKey{{Columns: catalog.Key{rsid}, RefTable: "Sailors", RefColumns: catalog.Key{sid}}}

	left := optimizer.NewExpression(&optimizer.GetTable{Table: sailors})
	right := optimizer.NewExpression(&optimizer.GetTable{Table: reserves})
	join := &optimizer.EquiJoin{
		LeftKeys:  []catalog.Ref{{Table: "Sailors", Column: "sid"}},
		RightKeys: []catalog.Ref{{Table: "Reserves", Column: "sid"}},
	}
	logical := optimizer.NewExpression(join, left, right)

	opt := optimizer.NewOptimizer(cfg)
	result, err := opt.Optimize(logical, optimizer.AnyProperties(), optimizer.InfiniteCost())
	if err != nil {
		return err
	}
	if result.Plan == nil {
		cli.PrintWarning("optimizer found no plan within the given upper bound")
		return nil
	}
	fmt.Print(optimizer.ExplainWithCost(result))
	return nil
}
