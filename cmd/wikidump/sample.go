package main

import (
	"bufio"
	"compress/bzip2"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"strings"
)

// sampleXMLDump copies the first count raw lines of a bzip2 or gzip
// compressed MediaWiki XML dump into a gzip-compressed output, grounded on
// original_source/wikisearch/make_sample.py's run(): that function also
// copies whole lines verbatim rather than parsing XML, since a prefix of
// a well-formed dump's lines is itself a useful fixture even though it
// isn't a well-formed XML document on its own.
func sampleXMLDump(dumpPath, outPath string, count int) error {
	in, err := os.Open(dumpPath)
	if err != nil {
		return err
	}
	defer in.Close()

	var src io.Reader
	if strings.HasSuffix(dumpPath, ".gz") {
		gz, err := gzip.NewReader(in)
		if err != nil {
			return err
		}
		defer gz.Close()
		src = gz
	} else {
		src = bzip2.NewReader(in)
	}
	return copyLines(src, outPath, count)
}

// sampleLineDump copies the first count content records (2*count raw
// lines, header+content pairs) of a gzip-compressed CirrusSearch dump.
func sampleLineDump(dumpPath, outPath string, count int) error {
	in, err := os.Open(dumpPath)
	if err != nil {
		return err
	}
	defer in.Close()

	src, err := gzip.NewReader(in)
	if err != nil {
		return err
	}
	defer src.Close()

	return copyLines(src, outPath, count*2)
}

func copyLines(src interface{ Read([]byte) (int, error) }, outPath string, lines int) error {
	out, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer out.Close()

	gz := gzip.NewWriter(out)
	defer gz.Close()

	scanner := bufio.NewScanner(src)
	scanner.Buffer(make([]byte, 0, 64*1024), maxSampleLineSize)

	n := 0
	for n < lines && scanner.Scan() {
		if _, err := gz.Write(scanner.Bytes()); err != nil {
			return err
		}
		if _, err := gz.Write([]byte("\n")); err != nil {
			return err
		}
		n++
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "wikidump: sampled %d lines into %s\n", n, outPath)
	return nil
}

// maxSampleLineSize matches engine/reader's CirrusSearch line buffer, since
// a sample drawn from a CirrusSearch dump hits the same long-article lines.
const maxSampleLineSize = 16 * 1024 * 1024
