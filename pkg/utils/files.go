// Copyright 2024 Redpanda Data, Inc.
//
// Use of this software is governed by the Business Source License
// included in the file licenses/BSL.md
//
// As of the Change Date specified in that file, in accordance with
// the Business Source License, use of this software will be governed
// by the Apache License, Version 2.0

package utils

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

func ReadFileLines(fs afero.Fs, filePath string) ([]string, error) {
	file, err := fs.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}

// ReadEnsureSingleLine reads a sysfs-style file that is expected to hold a
// single line and returns it with surrounding whitespace removed.
func ReadEnsureSingleLine(fs afero.Fs, path string) (string, error) {
	lines, err := ReadFileLines(fs, path)
	if err != nil {
		return "", err
	}
	if len(lines) == 0 {
		return "", fmt.Errorf("%s is empty", path)
	}
	if len(lines) > 1 {
		return "", fmt.Errorf("%s contains multiple lines", path)
	}
	return strings.TrimSpace(lines[0]), nil
}

func CopyFile(fs afero.Fs, src string, dst string) error {
	input, err := afero.ReadFile(fs, src)
	if err != nil {
		return err
	}
	return afero.WriteFile(fs, dst, input, 0o644)
}

func WriteFileLines(fs afero.Fs, lines []string, path string) error {
	return WriteFileLinesMode(fs, lines, path, 0o644)
}

func WriteFileLinesMode(fs afero.Fs, lines []string, path string, mode os.FileMode) error {
	if err := fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return afero.WriteFile(fs, path, []byte(strings.Join(lines, "\n")+"\n"), mode)
}

func WriteBytes(fs afero.Fs, bs []byte, path string) (int, error) {
	if err := fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, err
	}
	return len(bs), afero.WriteFile(fs, path, bs, 0o644)
}

func FileHash(fs afero.Fs, filePath string) (string, error) {
	file, err := fs.Open(filePath)
	if err != nil {
		return "", err
	}
	defer file.Close()
	h := sha256.New()
	if _, err := io.Copy(h, file); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)[:16]), nil
}

// BackupFile copies filePath next to itself, suffixed with a hash of its
// contents. Backing up unchanged contents twice yields the same file.
func BackupFile(fs afero.Fs, filePath string) (string, error) {
	hash, err := FileHash(fs, filePath)
	if err != nil {
		return "", err
	}
	bkFilePath := fmt.Sprintf("%s.hvtune.%s.bk", filePath, hash)
	if err := CopyFile(fs, filePath, bkFilePath); err != nil {
		return "", fmt.Errorf("unable to create backup of %s: %w", filePath, err)
	}
	return bkFilePath, nil
}
