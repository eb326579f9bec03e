// Copyright (c) 2015 AKUALAB INC., All rights reserved.
//
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

/*
Package checkpoint persists global accumulators and the corpus position.

A dump rewrites every accumulator file and the record file. Each file is
first moved to its backup. The record is backed up first and committed
first, so a backup of the record on disk means the dump did not finish and
every backup must be restored. Without it, leftover backups are stale.
Recover applies this rule after a crash.
*/
package checkpoint

import (
	"io"
	"path/filepath"
	"time"

	"github.com/akualab/bw/accum"
	"github.com/golang/glog"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
)

// Store reads and writes checkpoints in a directory.
type Store struct {
	Dir   string
	Retry RetryPolicy
	FS    FS
}

// NewStore creates a store using the OS file system.
func NewStore(dir string, retry RetryPolicy) *Store {
	return &Store{Dir: dir, Retry: retry, FS: OSFS{}}
}

// Path returns the path of a checkpoint file.
func (s *Store) Path(name string) string { return filepath.Join(s.Dir, name) }

// Classes returns the accumulator files used for the parameter classes.
func Classes(cl accum.Classes) []string {
	var names []string
	if cl.TMat {
		names = append(names, TMatFile)
	}
	if cl.MixW {
		names = append(names, MixWFile)
	}
	if cl.Gauden() {
		names = append(names, GaudenFile)
	}
	return names
}

// Dump writes the accumulators and the record. Failed attempts are
// reverted and retried. ErrRetryExhausted means nothing could be written
// and the previous checkpoint is still on disk.
func (s *Store) Dump(g *accum.Global, rec Record) error {

	if err := s.FS.MkdirAll(s.Dir); err != nil {
		return errors.Wrapf(err, "checkpoint: create %s", s.Dir)
	}
	rec.Written = time.Now()
	status, err := s.Retry.Do(func(attempt int) error {
		return s.dump(g, rec)
	})
	if err != nil {
		glog.Errorf("checkpoint at offset %d: %s: %v", rec.Offset, status, err)
		return err
	}
	glog.Infof("checkpoint at offset %d written to %s", rec.Offset, s.Dir)
	return nil
}

func (s *Store) dump(g *accum.Global, rec Record) (result error) {

	// Backups left by an earlier dump must be gone before this one makes
	// its own, or a crash below would restore them.
	if _, err := s.Recover(); err != nil {
		return err
	}

	names := Classes(g.Classes)
	backups := []*Backup{NewBackup(s.FS, s.Path(RecordFile))}
	for _, name := range names {
		backups = append(backups, NewBackup(s.FS, s.Path(name)))
	}

	defer func() {
		if result == nil {
			return
		}
		for i := len(backups) - 1; i >= 0; i-- {
			if backups[i].State() != BackedUp {
				continue
			}
			if err := backups[i].Revert(); err != nil {
				result = multierror.Append(result, err)
			}
		}
	}()

	for _, b := range backups {
		if err := b.Make(); err != nil {
			return err
		}
	}

	var merr *multierror.Error
	for _, name := range names {
		name := name
		err := s.writeFile(name, func(w io.Writer) error { return Encode(w, name, g) })
		if err != nil {
			merr = multierror.Append(merr, err)
		}
	}
	if err := merr.ErrorOrNil(); err != nil {
		return err
	}
	if err := s.writeFile(RecordFile, func(w io.Writer) error { return WriteRecord(w, rec) }); err != nil {
		return err
	}

	// The record commit is the commit point of the dump. Later commit
	// errors leave stale backups that the next dump or Recover removes.
	if err := backups[0].Commit(); err != nil {
		return err
	}
	for _, b := range backups[1:] {
		if err := b.Commit(); err != nil {
			glog.Warningf("stale backup left: %v", err)
		}
	}
	return nil
}

func (s *Store) writeFile(name string, enc func(w io.Writer) error) error {
	f, err := s.FS.Create(s.Path(name))
	if err != nil {
		return errors.Wrapf(err, "checkpoint: create %s", name)
	}
	if err := enc(f); err != nil {
		f.Close()
		return errors.Wrapf(err, "checkpoint: write %s", name)
	}
	if err := f.Close(); err != nil {
		return errors.Wrapf(err, "checkpoint: close %s", name)
	}
	return nil
}

// Recover cleans up after an interrupted dump. Returns true when backups
// were restored.
func (s *Store) Recover() (bool, error) {

	names := append([]string{RecordFile}, TMatFile, MixWFile, GaudenFile)
	restore, err := s.FS.Exists(s.Path(RecordFile) + BackupSuffix)
	if err != nil {
		return false, err
	}

	var result error
	for _, name := range names {
		p := s.Path(name)
		ok, err := s.FS.Exists(p + BackupSuffix)
		if err != nil {
			result = multierror.Append(result, err)
			continue
		}
		if !ok {
			continue
		}
		if restore {
			glog.Warningf("restoring %s from backup", p)
			err = s.FS.Rename(p+BackupSuffix, p)
		} else {
			glog.Warningf("removing stale backup of %s", p)
			err = s.FS.Remove(p + BackupSuffix)
		}
		if err != nil {
			result = multierror.Append(result, err)
		}
	}
	return restore, result
}

// Record reads the checkpoint record. Returns false if there is none.
func (s *Store) Record() (Record, bool, error) {

	p := s.Path(RecordFile)
	ok, err := s.FS.Exists(p)
	if err != nil || !ok {
		return Record{}, false, err
	}
	f, err := s.FS.Open(p)
	if err != nil {
		return Record{}, false, err
	}
	defer f.Close()
	rec, err := ReadRecord(f)
	if err != nil {
		return Record{}, false, errors.Wrapf(err, "checkpoint: read %s", p)
	}
	return rec, true, nil
}

// Load replaces the sums in g with the ones on disk.
func (s *Store) Load(g *accum.Global) error {
	for _, name := range Classes(g.Classes) {
		if err := s.readFile(name, g); err != nil {
			return err
		}
	}
	glog.Infof("loaded accumulators from %s", s.Dir)
	return nil
}

func (s *Store) readFile(name string, g *accum.Global) error {
	f, err := s.FS.Open(s.Path(name))
	if err != nil {
		return errors.Wrapf(err, "checkpoint: open %s", name)
	}
	defer f.Close()
	return Decode(f, name, g)
}
