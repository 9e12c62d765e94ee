package services

import (
	"io"
	"os"
	"path/filepath"

	mmap "github.com/edsrzf/mmap-go"

	"github.com/cidlib/macroeng/internal/classmeta"
	"github.com/cidlib/macroeng/internal/ids"
	"github.com/cidlib/macroeng/internal/runtimeclass"
	"github.com/cidlib/macroeng/internal/runtimeclass/corelib"
)

// FileSystemPath is MEng.System.Runtime.FileSystem's class path.
const FileSystemPath = "MEng.System.Runtime.FileSystem"

const (
	errOrdOpenFailed uint32 = iota + 1
	errOrdPathNotFQ
	errOrdCopyFailed
	errOrdDelFailed
	errOrdCreateFailed
	errOrdFindFailed
	errOrdMapFailed
)

// FileSystem is MEng.System.Runtime.FileSystem: sandboxed path
// existence checks, directory creation, copy/delete, and wildcard-free
// listing, grounded on CIDMacroEng_FileSysClass.cpp's TMEngFileSysInfo.
// The original's wildcard find (FindFiles/FindFirst/FindNext, an
// iterator pair) is flattened here into single-shot FindFiles/FindDirs
// calls returning every entry at once, since nothing else in this
// codebase models a macro-visible iterator protocol to hang a
// FindFirst/FindNext pair off of.
type FileSystem struct {
	idPathExists, idFileExists, idDirExists ids.MethodID
	idMakePath, idMakeSubDir                 ids.MethodID
	idDelFile, idCopyFile, idFileSize        ids.MethodID
	idFindFiles, idFindDirs                  ids.MethodID
	idMapFile                                ids.MethodID
}

func NewFileSystem() *FileSystem { return &FileSystem{} }

func (f *FileSystem) Path() string { return FileSystemPath }

func (f *FileSystem) Init(ctx runtimeclass.EngineContext, reg *classmeta.Registry) (*classmeta.ClassDescriptor, error) {
	desc, err := reg.RegisterClass(f.Path(), ids.InvalidClassID, classmeta.Final, true)
	if err != nil {
		return nil, err
	}
	for name, target := range map[string]*ids.MethodID{
		"PathExists": &f.idPathExists, "FileExists": &f.idFileExists, "DirExists": &f.idDirExists,
		"MakePath": &f.idMakePath, "MakeSubDir": &f.idMakeSubDir,
		"DelFile": &f.idDelFile, "CopyFile": &f.idCopyFile, "FileSize": &f.idFileSize,
		"FindFiles": &f.idFindFiles, "FindDirs": &f.idFindDirs,
		"MapFile": &f.idMapFile,
	} {
		id, err := reg.NextMethodID(desc.ID)
		if err != nil {
			return nil, err
		}
		*target = id
		if err := desc.AddMethod(&classmeta.MethodDescriptor{ID: id, Name: name, ReturnClassID: desc.ID}); err != nil {
			return nil, err
		}
	}
	return desc, nil
}

func (f *FileSystem) MakeStorage(bool) classmeta.Payload { return nil }

func (f *FileSystem) InvokeMethod(ctx runtimeclass.EngineContext, methodID ids.MethodID, receiver *classmeta.ValueObject, args []*classmeta.ValueObject) (*classmeta.ValueObject, bool, error) {
	switch methodID {
	case f.idPathExists, f.idFileExists, f.idDirExists:
		path, err := resolvePath(ctx, strArg(args, 0))
		if err != nil {
			return nil, true, ctx.Raise(receiver.ClassID, errOrdPathNotFQ, err.Error())
		}
		info, statErr := os.Stat(path)
		exists := statErr == nil
		switch methodID {
		case f.idFileExists:
			exists = exists && !info.IsDir()
		case f.idDirExists:
			exists = exists && info.IsDir()
		}
		return classmeta.NewValueObject(ids.InvalidClassID, exists), true, nil

	case f.idMakePath, f.idMakeSubDir:
		path, err := resolvePath(ctx, strArg(args, 0))
		if err != nil {
			return nil, true, ctx.Raise(receiver.ClassID, errOrdPathNotFQ, err.Error())
		}
		if err := os.MkdirAll(path, 0o755); err != nil {
			return nil, true, ctx.Raise(receiver.ClassID, errOrdCreateFailed, err.Error())
		}
		return receiver, true, nil

	case f.idDelFile:
		path, err := resolvePath(ctx, strArg(args, 0))
		if err != nil {
			return nil, true, ctx.Raise(receiver.ClassID, errOrdPathNotFQ, err.Error())
		}
		if err := os.Remove(path); err != nil {
			return nil, true, ctx.Raise(receiver.ClassID, errOrdDelFailed, err.Error())
		}
		return receiver, true, nil

	case f.idCopyFile:
		src, err := resolvePath(ctx, strArg(args, 0))
		if err != nil {
			return nil, true, ctx.Raise(receiver.ClassID, errOrdPathNotFQ, err.Error())
		}
		dst, err := resolvePath(ctx, strArg(args, 1))
		if err != nil {
			return nil, true, ctx.Raise(receiver.ClassID, errOrdPathNotFQ, err.Error())
		}
		if err := copyFile(src, dst); err != nil {
			return nil, true, ctx.Raise(receiver.ClassID, errOrdCopyFailed, err.Error())
		}
		return receiver, true, nil

	case f.idFileSize:
		path, err := resolvePath(ctx, strArg(args, 0))
		if err != nil {
			return nil, true, ctx.Raise(receiver.ClassID, errOrdPathNotFQ, err.Error())
		}
		info, err := os.Stat(path)
		if err != nil {
			return nil, true, ctx.Raise(receiver.ClassID, errOrdOpenFailed, err.Error())
		}
		return classmeta.NewValueObject(ids.InvalidClassID, info.Size()), true, nil

	case f.idFindFiles, f.idFindDirs:
		path, err := resolvePath(ctx, strArg(args, 0))
		if err != nil {
			return nil, true, ctx.Raise(receiver.ClassID, errOrdPathNotFQ, err.Error())
		}
		entries, err := os.ReadDir(path)
		if err != nil {
			return nil, true, ctx.Raise(receiver.ClassID, errOrdFindFailed, err.Error())
		}
		var names []string
		for _, e := range entries {
			if methodID == f.idFindFiles && e.IsDir() {
				continue
			}
			if methodID == f.idFindDirs && !e.IsDir() {
				continue
			}
			names = append(names, e.Name())
		}
		return classmeta.NewValueObject(ids.InvalidClassID, names), true, nil

	case f.idMapFile:
		path, err := resolvePath(ctx, strArg(args, 0))
		if err != nil {
			return nil, true, ctx.Raise(receiver.ClassID, errOrdPathNotFQ, err.Error())
		}
		data, err := mapFileReadOnly(path)
		if err != nil {
			return nil, true, ctx.Raise(receiver.ClassID, errOrdMapFailed, err.Error())
		}
		memBufDesc, err := ctx.Registry().FindClassByPath("MEng.MemBuf")
		if err != nil {
			return nil, true, err
		}
		v := classmeta.NewValueObject(memBufDesc.ID, corelib.NewMappedStorage(data))
		v.Const = true
		return v, true, nil
	}
	return nil, false, nil
}

// mapFileReadOnly memory-maps path read-only via mmap-go, the same
// map-instead-of-read fast path saferwall-pe uses for large PE images.
// The descriptor is closed immediately after the mapping is established;
// the mapping itself stays valid independent of the now-closed fd.
func mapFileReadOnly(path string) (mmap.MMap, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	data, err := mmap.Map(file, mmap.RDONLY, 0)
	if err != nil {
		return nil, err
	}
	return data, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, in)
	return err
}
