package cmd

import "github.com/ardnew/lineprof/pkg"

var (
	ErrWriteConfig = pkg.NewError("write configuration file")
	ErrFileExists  = pkg.NewError("file exists (use --force to overwrite)")
	ErrNoMatch     = pkg.NewError("no profiled file matches")
	ErrWriteTrace  = pkg.NewError("write event trace")
)
