package checkpoint

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/akualab/bw"
	"github.com/akualab/bw/accum"
	"github.com/akualab/bw/model"
	pkgerrors "github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

func testInventory() *model.Inventory {
	return model.Flat(model.FlatSpec{
		Models:       []string{"A", "B"},
		NumStates:    3,
		NumStreams:   1,
		VectorLength: []int{2},
		NumDensities: 2,
	})
}

var all = accum.Classes{TMat: true, MixW: true, Mean: true, Var: true}

func filled(inv *model.Inventory, cl accum.Classes, v float64) *accum.Global {
	g := accum.NewGlobal(inv, cl)
	for _, t := range g.TMat {
		t[0][1] = v
	}
	for _, m := range g.MixW {
		m[0][1] = v
	}
	for c := range g.Dnom {
		g.Dnom[c][0][0] = v
		if g.Mean != nil {
			g.Mean[c][0][0][1] = v
		}
		if g.Var != nil {
			g.Var[c][0][1][0] = v
		}
		if g.FullVar != nil {
			g.FullVar[c][0][0].SetSym(0, 1, v)
		}
	}
	return g
}

func noSleep(time.Duration) {}

func readFile(t *testing.T, fn string) string {
	b, e := os.ReadFile(fn)
	bw.CheckError(t, e)
	return string(b)
}

func TestBackup(t *testing.T) {

	fn := filepath.Join(t.TempDir(), "counts")
	bw.CheckError(t, os.WriteFile(fn, []byte("old"), 0644))

	b := NewBackup(OSFS{}, fn)
	if b.Commit() == nil {
		t.Fatal("commit without backup must fail")
	}
	bw.CheckError(t, b.Make())
	if b.State() != BackedUp || readFile(t, b.BackupPath()) != "old" {
		t.Fatalf("backup not made, state %s", b.State())
	}
	if b.Make() == nil {
		t.Fatal("second make must fail")
	}
	bw.CheckError(t, os.WriteFile(fn, []byte("new"), 0644))
	bw.CheckError(t, b.Commit())
	if _, e := os.Stat(b.BackupPath()); !os.IsNotExist(e) {
		t.Fatalf("backup not removed")
	}
	if readFile(t, fn) != "new" || b.State() != Committed {
		t.Fatalf("commit failed")
	}

	bw.CheckError(t, b.Make())
	bw.CheckError(t, os.WriteFile(fn, []byte("partial"), 0644))
	bw.CheckError(t, b.Revert())
	if readFile(t, fn) != "new" || b.State() != Reverted {
		t.Fatalf("revert failed")
	}

	// No primary: revert removes the partial file.
	fn2 := filepath.Join(filepath.Dir(fn), "other")
	b2 := NewBackup(OSFS{}, fn2)
	bw.CheckError(t, b2.Make())
	bw.CheckError(t, os.WriteFile(fn2, []byte("partial"), 0644))
	bw.CheckError(t, b2.Revert())
	if _, e := os.Stat(fn2); !os.IsNotExist(e) {
		t.Fatalf("partial file not removed")
	}
}

func TestRetry(t *testing.T) {

	var slept []time.Duration
	r := RetryPolicy{MaxAttempts: 3, Interval: time.Second, Sleep: func(d time.Duration) { slept = append(slept, d) }}

	calls := 0
	status, e := r.Do(func(attempt int) error {
		calls++
		if attempt < 3 {
			return errors.New("disk full")
		}
		return nil
	})
	bw.CheckError(t, e)
	if status != StatusCommitted || calls != 3 || len(slept) != 2 {
		t.Fatalf("status=%s calls=%d sleeps=%d", status, calls, len(slept))
	}

	calls, slept = 0, nil
	status, e = r.Do(func(int) error {
		calls++
		return errors.New("disk full")
	})
	if status != StatusRetryExhausted || pkgerrors.Cause(e) != ErrRetryExhausted {
		t.Fatalf("expected retry exhausted, got %s %v", status, e)
	}
	if calls != 3 || len(slept) != 2 || !strings.Contains(e.Error(), "disk full") {
		t.Fatalf("calls=%d sleeps=%d err=%v", calls, len(slept), e)
	}
}

func TestDumpLoad(t *testing.T) {

	inv := testInventory()
	s := NewStore(filepath.Join(t.TempDir(), "ckpt"), RetryPolicy{MaxAttempts: 1, Sleep: noSleep})

	if _, ok, e := s.Record(); ok || e != nil {
		t.Fatalf("expected no record, got %v %v", ok, e)
	}

	g := filled(inv, all, 2.5)
	rec := Record{Offset: 7, Remaining: 3, Utterances: 6, Skipped: 1, Frames: 600, LogLik: -1200}
	bw.CheckError(t, s.Dump(g, rec))

	g2 := accum.NewGlobal(inv, all)
	bw.CheckError(t, s.Load(g2))
	bw.CompareSliceFloat(t, g.TMat[1][0], g2.TMat[1][0], "tmat", 1e-12)
	bw.CompareSliceFloat(t, g.MixW[4][0], g2.MixW[4][0], "mixw", 1e-12)
	bw.CompareSliceFloat(t, g.Mean[2][0][0], g2.Mean[2][0][0], "mean", 1e-12)
	bw.CompareSliceFloat(t, g.Var[2][0][1], g2.Var[2][0][1], "var", 1e-12)

	r2, ok, e := s.Record()
	bw.CheckError(t, e)
	if !ok || r2.Offset != 7 || r2.Remaining != 3 || r2.Skipped != 1 {
		t.Fatalf("bad record %+v", r2)
	}
	bw.CompareFloats(t, -2, r2.AvgLogLik(), "avg loglik", 1e-12)

	for _, name := range []string{RecordFile, TMatFile, MixWFile, GaudenFile} {
		if _, e := os.Stat(s.Path(name) + BackupSuffix); !os.IsNotExist(e) {
			t.Fatalf("backup of %s left behind", name)
		}
	}

	// Different classes cannot be loaded.
	g3 := accum.NewGlobal(inv, accum.Classes{TMat: true, MixW: true})
	if e := s.Load(g3); pkgerrors.Cause(e) != ErrFormat {
		t.Fatalf("expected ErrFormat, got %v", e)
	}
}

func TestFullVarCodec(t *testing.T) {

	inv := testInventory()
	cl := accum.Classes{Mean: true, Var: true, FullVar: true}
	s := NewStore(t.TempDir(), RetryPolicy{MaxAttempts: 1})
	g := filled(inv, cl, 1.25)
	g.FullVar[0][0][1].SetSym(1, 1, 3.5)
	bw.CheckError(t, s.Dump(g, Record{}))

	g2 := accum.NewGlobal(inv, cl)
	bw.CheckError(t, s.Load(g2))
	for c := range g.FullVar {
		for st := range g.FullVar[c] {
			for k, m := range g.FullVar[c][st] {
				if !mat.EqualApprox(m, g2.FullVar[c][st][k], 1e-12) {
					t.Fatalf("full covariance mismatch cb=%d s=%d k=%d:\n%v\n%v", c, st, k,
						mat.Formatted(m), mat.Formatted(g2.FullVar[c][st][k]))
				}
			}
		}
	}
	bw.CompareFloats(t, 1.25, g2.FullVar[3][0][0].At(1, 0), "symmetric", 1e-12)
	bw.CompareFloats(t, 3.5, g2.FullVar[0][0][1].At(1, 1), "diagonal", 1e-12)
}

// failFS fails to create files whose name contains a pattern.
type failFS struct {
	OSFS
	pattern string
	creates int
}

func (f *failFS) Create(name string) (io.WriteCloser, error) {
	f.creates++
	if strings.Contains(name, f.pattern) {
		return nil, errors.New("simulated write failure")
	}
	return f.OSFS.Create(name)
}

func TestBackupSafety(t *testing.T) {

	inv := testInventory()
	dir := t.TempDir()
	s := NewStore(dir, RetryPolicy{MaxAttempts: 2, Sleep: noSleep})
	bw.CheckError(t, s.Dump(filled(inv, all, 1), Record{Offset: 10}))

	fs := &failFS{pattern: MixWFile}
	s.FS = fs
	e := s.Dump(filled(inv, all, 2), Record{Offset: 20})
	if pkgerrors.Cause(e) != ErrRetryExhausted {
		t.Fatalf("expected ErrRetryExhausted, got %v", e)
	}
	if fs.creates < 4 {
		t.Fatalf("expected two attempts, got %d creates", fs.creates)
	}

	// The previous checkpoint is intact.
	s.FS = OSFS{}
	rec, ok, e := s.Record()
	bw.CheckError(t, e)
	if !ok || rec.Offset != 10 {
		t.Fatalf("record changed: %+v", rec)
	}
	g := accum.NewGlobal(inv, all)
	bw.CheckError(t, s.Load(g))
	bw.CompareFloats(t, 1, g.TMat[0][0][1], "tmat", 1e-12)
	bw.CompareFloats(t, 1, g.Dnom[0][0][0], "dnom", 1e-12)

	restored, e := s.Recover()
	bw.CheckError(t, e)
	if restored {
		t.Fatalf("nothing to restore after a reverted dump")
	}
}

func TestRecover(t *testing.T) {

	inv := testInventory()
	s := NewStore(t.TempDir(), RetryPolicy{MaxAttempts: 1})
	bw.CheckError(t, s.Dump(filled(inv, all, 3), Record{Offset: 5}))

	// Crash in the middle of a dump: record and tmat moved to backups,
	// tmat partially written.
	bw.CheckError(t, os.Rename(s.Path(RecordFile), s.Path(RecordFile)+BackupSuffix))
	bw.CheckError(t, os.Rename(s.Path(TMatFile), s.Path(TMatFile)+BackupSuffix))
	bw.CheckError(t, os.WriteFile(s.Path(TMatFile), []byte("garbage"), 0644))

	restored, e := s.Recover()
	bw.CheckError(t, e)
	if !restored {
		t.Fatal("expected restore")
	}
	g := accum.NewGlobal(inv, all)
	bw.CheckError(t, s.Load(g))
	bw.CompareFloats(t, 3, g.TMat[0][0][1], "tmat", 1e-12)
	rec, ok, e := s.Record()
	bw.CheckError(t, e)
	if !ok || rec.Offset != 5 {
		t.Fatalf("bad record %+v", rec)
	}

	// Crash after the record commit: stale backups are removed.
	bw.CheckError(t, os.WriteFile(s.Path(MixWFile)+BackupSuffix, []byte("stale"), 0644))
	restored, e = s.Recover()
	bw.CheckError(t, e)
	if restored {
		t.Fatal("stale backup must not be restored")
	}
	if _, e := os.Stat(s.Path(MixWFile) + BackupSuffix); !os.IsNotExist(e) {
		t.Fatal("stale backup not removed")
	}
	bw.CheckError(t, s.Load(g))
}

// crashFS fails to remove backups of one file and panics when another
// file is moved to its backup.
type crashFS struct {
	OSFS
	removeFail  string
	removeFails int
	crashOn     string
}

func (f *crashFS) Remove(name string) error {
	if f.removeFails > 0 && strings.HasSuffix(name, f.removeFail) {
		f.removeFails--
		return errors.New("simulated remove failure")
	}
	return f.OSFS.Remove(name)
}

func (f *crashFS) Rename(from, to string) error {
	if len(f.crashOn) > 0 && strings.HasSuffix(from, f.crashOn) {
		panic("simulated crash")
	}
	return f.OSFS.Rename(from, to)
}

func TestStaleBackupAfterFailedCommit(t *testing.T) {

	inv := testInventory()
	s := NewStore(t.TempDir(), RetryPolicy{MaxAttempts: 1})
	bw.CheckError(t, s.Dump(filled(inv, all, 1), Record{Offset: 1}))

	// The tmat backup cannot be removed after the commit point.
	s.FS = &crashFS{removeFail: TMatFile + BackupSuffix, removeFails: 1}
	bw.CheckError(t, s.Dump(filled(inv, all, 2), Record{Offset: 2}))
	if _, e := os.Stat(s.Path(TMatFile) + BackupSuffix); e != nil {
		t.Fatalf("expected stale tmat backup: %v", e)
	}

	// Next dump crashes after backing up the record, before tmat.
	s.FS = &crashFS{crashOn: string(os.PathSeparator) + TMatFile}
	func() {
		defer func() {
			if r := recover(); r == nil {
				t.Fatal("expected crash")
			}
		}()
		s.Dump(filled(inv, all, 3), Record{Offset: 3})
	}()

	s.FS = OSFS{}
	restored, e := s.Recover()
	bw.CheckError(t, e)
	if !restored {
		t.Fatal("expected restore")
	}
	rec, ok, e := s.Record()
	bw.CheckError(t, e)
	g := accum.NewGlobal(inv, all)
	bw.CheckError(t, s.Load(g))
	if !ok || rec.Offset != 2 {
		t.Fatalf("bad record %+v", rec)
	}
	bw.CompareFloats(t, 2, g.TMat[0][0][1], "tmat", 1e-12)
	bw.CompareFloats(t, 2, g.MixW[0][0][1], "mixw", 1e-12)
}
