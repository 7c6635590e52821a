package service

import (
	"os"
	"strings"

	"github.com/vertextoedge/wget-fetch/internal/domain"
)

// DefaultFilename is used when the URL has no usable last segment
const DefaultFilename = "index.html"

// Resolve turns a URL, an action and options into an immutable FetchRequest.
// It never performs I/O and never fails; malformed URLs surface at transfer time.
func Resolve(sourceURL string, action domain.Action, opts domain.RequestOptions) domain.FetchRequest {
	req := domain.FetchRequest{SourceURL: sourceURL, Options: opts}

	if kind, ok := action.Sink(); ok {
		if kind == domain.SinkFile {
			req.Target = domain.Target{Kind: domain.SinkFile, Path: resolvePath("", sourceURL)}
			return req
		}
		req.Target = domain.Target{Kind: kind}
		return req
	}

	if actionOpts, ok := action.Options(); ok {
		// options passed as the action replace the caller's options
		req.Options = actionOpts
		kind := domain.SinkStream
		if actionOpts.Action != nil {
			kind = *actionOpts.Action
		}
		req.Options.Action = nil
		if kind == domain.SinkFile {
			req.Target = domain.Target{Kind: domain.SinkFile, Path: resolvePath("", sourceURL)}
			return req
		}
		req.Target = domain.Target{Kind: kind}
		return req
	}

	path, _ := action.Path()
	req.Target = domain.Target{Kind: domain.SinkFile, Path: resolvePath(path, sourceURL)}
	return req
}

// resolvePath appends the URL filename to directory-style destinations
func resolvePath(dest, sourceURL string) string {
	if dest == "" {
		dest = "./"
	}
	if IsDirPath(dest) {
		return dest + FilenameFromURL(sourceURL)
	}
	return dest
}

// IsDirPath reports whether dest ends in a path separator
func IsDirPath(dest string) bool {
	return strings.HasSuffix(dest, "/") || strings.HasSuffix(dest, string(os.PathSeparator))
}

// FilenameFromURL returns the last /-delimited segment of a URL, cut at its
// first '?' and then at its first '#'.
func FilenameFromURL(sourceURL string) string {
	name := sourceURL
	if i := strings.LastIndexByte(name, '/'); i >= 0 {
		name = name[i+1:]
	}
	name, _, _ = strings.Cut(name, "?")
	name, _, _ = strings.Cut(name, "#")
	// dot segments would name the directory itself
	if name == "" || name == "." || name == ".." {
		return DefaultFilename
	}
	return name
}
