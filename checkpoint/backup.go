// Copyright (c) 2015 AKUALAB INC., All rights reserved.
//
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package checkpoint

import (
	"os"

	"github.com/pkg/errors"
)

// BackupSuffix is appended to a file name to get its backup.
const BackupSuffix = ".bkp"

// BackupState is the state of a file backup.
type BackupState int

const (
	// Clean means no backup is pending.
	Clean BackupState = iota
	// BackedUp means the primary file was moved to its backup.
	BackedUp
	// Committed means the new primary was kept and the backup removed.
	Committed
	// Reverted means the backup was restored as the primary.
	Reverted
)

func (s BackupState) String() string {
	switch s {
	case Clean:
		return "clean"
	case BackedUp:
		return "backed-up"
	case Committed:
		return "committed"
	case Reverted:
		return "reverted"
	}
	return "unknown"
}

// Backup protects a file while it is being rewritten.
//
//	Clean -> BackedUp        Make
//	BackedUp -> Committed    Commit
//	BackedUp -> Reverted     Revert
//
// Committed and Reverted are clean states; Make may be called again.
type Backup struct {
	Path  string
	fs    FS
	state BackupState

	// A primary existed when the backup was made.
	saved bool
}

// NewBackup creates a backup for the file at path.
func NewBackup(fs FS, path string) *Backup {
	return &Backup{Path: path, fs: fs}
}

// BackupPath returns the name of the backup file.
func (b *Backup) BackupPath() string { return b.Path + BackupSuffix }

// State returns the current state.
func (b *Backup) State() BackupState { return b.state }

// Make moves the primary file to the backup file, replacing an older
// backup. A missing primary is not an error.
func (b *Backup) Make() error {
	if b.state == BackedUp {
		return errors.Errorf("checkpoint: backup of %s already made", b.Path)
	}
	ok, err := b.fs.Exists(b.Path)
	if err != nil {
		return errors.Wrapf(err, "checkpoint: stat %s", b.Path)
	}
	b.saved = ok
	if ok {
		if err := b.fs.Rename(b.Path, b.BackupPath()); err != nil {
			return errors.Wrapf(err, "checkpoint: backup %s", b.Path)
		}
	}
	b.state = BackedUp
	return nil
}

// Commit removes the backup, keeping the new primary.
func (b *Backup) Commit() error {
	if b.state != BackedUp {
		return errors.Errorf("checkpoint: commit %s in state %s", b.Path, b.state)
	}
	if b.saved {
		if err := b.fs.Remove(b.BackupPath()); err != nil && !os.IsNotExist(err) {
			return errors.Wrapf(err, "checkpoint: commit %s", b.Path)
		}
	}
	b.state = Committed
	return nil
}

// Revert restores the backup as the primary. Without a backup the
// partially written primary is removed.
func (b *Backup) Revert() error {
	if b.state != BackedUp {
		return errors.Errorf("checkpoint: revert %s in state %s", b.Path, b.state)
	}
	if b.saved {
		if err := b.fs.Rename(b.BackupPath(), b.Path); err != nil {
			return errors.Wrapf(err, "checkpoint: revert %s", b.Path)
		}
	} else if err := b.fs.Remove(b.Path); err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "checkpoint: revert %s", b.Path)
	}
	b.state = Reverted
	return nil
}
