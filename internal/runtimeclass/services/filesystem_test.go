package services

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cidlib/macroeng/internal/classmeta"
	"github.com/cidlib/macroeng/internal/runtimeclass"
	"github.com/cidlib/macroeng/internal/runtimeclass/corelib"
)

func TestFileSystemMakePathAndFileExists(t *testing.T) {
	dir := t.TempDir()
	ctx, desc, rc, recv := newTestClass(t, FileSystemPath)
	ctx.sandboxBase = dir

	mustInvoke(t, ctx, rc, recv, desc, "MakePath", vo("sub"))
	if _, err := os.Stat(filepath.Join(dir, "sub")); err != nil {
		t.Fatalf("MakePath did not create sub: %v", err)
	}

	if err := os.WriteFile(filepath.Join(dir, "sub", "a.txt"), []byte("hi"), 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	exists := mustInvoke(t, ctx, rc, recv, desc, "FileExists", vo("sub/a.txt"))
	if exists.Payload.(bool) != true {
		t.Fatal("FileExists: expected true for seeded file")
	}

	notExists := mustInvoke(t, ctx, rc, recv, desc, "FileExists", vo("sub/missing.txt"))
	if notExists.Payload.(bool) != false {
		t.Fatal("FileExists: expected false for missing file")
	}

	isDir := mustInvoke(t, ctx, rc, recv, desc, "DirExists", vo("sub"))
	if isDir.Payload.(bool) != true {
		t.Fatal("DirExists: expected true for sub")
	}
}

func TestFileSystemCopyAndDelFile(t *testing.T) {
	dir := t.TempDir()
	ctx, desc, rc, recv := newTestClass(t, FileSystemPath)
	ctx.sandboxBase = dir

	if err := os.WriteFile(filepath.Join(dir, "src.txt"), []byte("payload"), 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	mustInvoke(t, ctx, rc, recv, desc, "CopyFile", vo("src.txt"), vo("dst.txt"))
	data, err := os.ReadFile(filepath.Join(dir, "dst.txt"))
	if err != nil || string(data) != "payload" {
		t.Fatalf("CopyFile: got %q, err %v", data, err)
	}

	mustInvoke(t, ctx, rc, recv, desc, "DelFile", vo("src.txt"))
	if _, err := os.Stat(filepath.Join(dir, "src.txt")); err == nil {
		t.Fatal("DelFile: src.txt should no longer exist")
	}
}

func TestFileSystemFindFilesAndDirs(t *testing.T) {
	dir := t.TempDir()
	ctx, desc, rc, recv := newTestClass(t, FileSystemPath)
	ctx.sandboxBase = dir

	if err := os.WriteFile(filepath.Join(dir, "one.txt"), nil, 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}
	if err := os.Mkdir(filepath.Join(dir, "childdir"), 0o755); err != nil {
		t.Fatalf("seed dir: %v", err)
	}

	files := mustInvoke(t, ctx, rc, recv, desc, "FindFiles", vo("."))
	names := files.Payload.([]string)
	if len(names) != 1 || names[0] != "one.txt" {
		t.Fatalf("FindFiles: got %v, want [one.txt]", names)
	}

	dirs := mustInvoke(t, ctx, rc, recv, desc, "FindDirs", vo("."))
	dirNames := dirs.Payload.([]string)
	if len(dirNames) != 1 || dirNames[0] != "childdir" {
		t.Fatalf("FindDirs: got %v, want [childdir]", dirNames)
	}
}

func TestFileSystemFileSizeRaisesOnMissingFile(t *testing.T) {
	dir := t.TempDir()
	ctx, desc, rc, recv := newTestClass(t, FileSystemPath)
	ctx.sandboxBase = dir

	_, err := invoke(t, ctx, rc, recv, desc, "FileSize", vo("nope.txt"))
	if err == nil {
		t.Fatal("expected FileSize to raise for a missing file")
	}
}

func TestFileSystemMapFileReturnsReadOnlyMemBuf(t *testing.T) {
	dir := t.TempDir()
	const contents = "hello mmap"
	if err := os.WriteFile(filepath.Join(dir, "mapped.bin"), []byte(contents), 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	reg := classmeta.NewRegistry()
	ctx := &fakeCtx{reg: reg, sandboxBase: dir}
	svcLoader := runtimeclass.NewLoader(ctx, DefaultClasses()...)
	coreLoader := runtimeclass.NewLoader(ctx, corelib.DefaultClasses()...)
	reg.AddLoader(svcLoader)
	reg.AddLoader(coreLoader)

	fsDesc, err := reg.FindClassByPath(FileSystemPath)
	if err != nil {
		t.Fatalf("resolving %s: %v", FileSystemPath, err)
	}
	fsRC := svcLoader.ClassFor(fsDesc.ID)
	fsRecv := classmeta.NewValueObject(fsDesc.ID, fsRC.MakeStorage(false))

	result := mustInvoke(t, ctx, fsRC, fsRecv, fsDesc, "MapFile", vo("mapped.bin"))
	if !result.Const {
		t.Fatal("MapFile: expected the returned MemBuf to be marked const")
	}

	memBufDesc, err := reg.FindClassByPath("MEng.MemBuf")
	if err != nil {
		t.Fatalf("resolving MEng.MemBuf: %v", err)
	}
	if result.ClassID != memBufDesc.ID {
		t.Fatalf("MapFile: got class id %d, want MemBuf's %d", result.ClassID, memBufDesc.ID)
	}
	memBufRC := coreLoader.ClassFor(memBufDesc.ID)

	curSize := mustInvoke(t, ctx, memBufRC, result, memBufDesc, "CurSize")
	if curSize.Payload.(int64) != int64(len(contents)) {
		t.Fatalf("CurSize: got %v, want %d", curSize.Payload, len(contents))
	}

	firstByte := mustInvoke(t, ctx, memBufRC, result, memBufDesc, "GetCard1", vo(int64(0)))
	if firstByte.Payload.(uint64) != uint64(contents[0]) {
		t.Fatalf("GetCard1(0): got %v, want %d", firstByte.Payload, contents[0])
	}

	if _, err := invoke(t, ctx, memBufRC, result, memBufDesc, "PutCard1", vo(int64(0)), vo(int64(0))); err == nil {
		t.Fatal("PutCard1 on a mapped read-only MemBuf should fail the const check")
	}
}
