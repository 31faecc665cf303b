package util

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// MoveFile moves the provided file, even if source and dest are part of different file systems.
//
// os.Rename is tried first. When it fails the file is copied and the source removed,
// which is not atomic.
func MoveFile(sourcePath, destPath string) error {
	if err := os.Rename(sourcePath, destPath); err == nil {
		return nil
	}
	if err := CopyFile(sourcePath, destPath); err != nil {
		return err
	}
	if err := os.Remove(sourcePath); err != nil {
		return fmt.Errorf("couldn't remove source file: %w", err)
	}
	return nil
}

// CopyFile copies sourcePath to destPath, keeping the permission bits of the source.
// An existing destPath is truncated.
func CopyFile(sourcePath, destPath string) error {
	inputFile, err := os.Open(sourcePath)
	if err != nil {
		return fmt.Errorf("couldn't open source file: %w", err)
	}
	defer inputFile.Close()

	info, err := inputFile.Stat()
	if err != nil {
		return fmt.Errorf("couldn't stat source file: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("couldn't copy %s: is a directory", sourcePath)
	}

	outputFile, err := os.OpenFile(destPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return fmt.Errorf("couldn't open dest file: %w", err)
	}

	_, err = io.Copy(outputFile, inputFile)
	if cerr := outputFile.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("couldn't copy to dest from source: %w", err)
	}
	return nil
}

// FileExists returns true if path exists and is not a directory.
func FileExists(path string) bool {
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) || err != nil {
		return false
	}
	return !info.IsDir()
}
