package web

import "embed"

// StaticFS embeds the single-page dashboard and its assets.
//
//go:embed static/*
var StaticFS embed.FS
