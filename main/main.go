package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/noidwasavailable/Odysseus/common"
	"github.com/noidwasavailable/Odysseus/conf"
	"github.com/noidwasavailable/Odysseus/errors"
	"github.com/noidwasavailable/Odysseus/odysseus"
	"github.com/noidwasavailable/Odysseus/storage/dealloc"
	"github.com/noidwasavailable/Odysseus/storage/page"
)

// Odysseus is used as an embedded storage layer only.
// This entry point runs a small insert / scan / destroy round for checking a setup.
func main() {
	confPath := flag.String("conf", "", "config file (.ini or .toml)")
	flag.Parse()

	cfg := conf.Default()
	cfg.Storage.VirtualDisk = true
	if *confPath != "" {
		var err error
		if cfg, err = conf.Load(*confPath); err != nil {
			common.ShPrintf(common.FATAL, "config: %v\n", err)
			os.Exit(1)
		}
	}

	if err := run(cfg); err != nil {
		common.ShPrintf(common.FATAL, "%+v\n", err)
		os.Exit(1)
	}
}

func run(cfg *conf.Config) (err error) {
	oi, err := odysseus.NewOdysseusInstance(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if serr := oi.Shutdown(cfg.Storage.VirtualDisk); err == nil {
			err = serr
		}
	}()

	cat := oi.GetCatalog()
	obj := cat.GetFileByName("demo")
	if obj == nil {
		if obj, err = cat.CreateFile("demo"); err != nil {
			return err
		}
	}

	om := oi.GetObjectManager()
	oids := make([]*page.ObjectID, 0)
	for i := 0; i < 100; i++ {
		oid, err := om.CreateObject(obj, nil, &page.ObjectHeader{Tag: uint16(i)}, []byte(fmt.Sprintf("object number %d", i)))
		if err != nil {
			return err
		}
		oids = append(oids, oid)
	}

	// newest first
	cursor := oi.GetCursor()
	var cur *page.ObjectID
	for n := 0; n < 3; n++ {
		oid, hdr, err := cursor.PrevObject(obj, cur)
		if errors.IsEndOfScan(err) {
			break
		} else if err != nil {
			return err
		}
		data, err := om.ReadObject(oid, 0, -1)
		if err != nil {
			return err
		}
		common.ShPrintf(common.INFO, "%v tag:%d %q\n", oid, hdr.Tag, data)
		cur = oid
	}

	list := dealloc.NewList()
	for _, oid := range oids {
		if err := om.DestroyObject(obj, oid, oi.GetDeallocPool(), list); err != nil {
			return err
		}
	}
	common.ShPrintf(common.INFO, "%d pages queued for deallocation: %v\n", list.Len(), list.Elems())

	if err := oi.CommitDeallocations(list); err != nil {
		return err
	}
	return om.CheckFile(obj)
}
