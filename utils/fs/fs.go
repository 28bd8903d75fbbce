/*
 * Copyright 2023 The AspectGo Authors.
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

// Package fs locates and reads weave-plan files on disk.
package fs

import (
	"io/fs"
	"os"
	"path/filepath"
)

// LoadFile reads the file, nil when it cannot be read.
func LoadFile(filePath string) []byte {
	buf, err := os.ReadFile(filePath)
	if err != nil {
		return nil
	}
	return buf
}

// GetFilePaths walks the directory part of loadFilePattern and returns the
// files whose base name matches its file part. Files and directories
// matching an excluded pattern are skipped.
func GetFilePaths(loadFilePattern string, excludedPatterns ...string) ([]string, error) {
	dir, file := filepath.Split(loadFilePattern)
	if dir == "" {
		dir = "."
	}
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && isMatch(d, excludedPatterns...) {
				return filepath.SkipDir
			}
			return nil
		}
		if matched, _ := filepath.Match(file, d.Name()); matched && !isMatch(d, excludedPatterns...) {
			paths = append(paths, path)
		}
		return nil
	})
	return paths, err
}

func isMatch(d fs.DirEntry, patterns ...string) bool {
	for _, item := range patterns {
		if matched, _ := filepath.Match(item, d.Name()); matched {
			return true
		}
	}
	return false
}
