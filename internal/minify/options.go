package minify

import (
	"errors"
	"fmt"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
)

// ErrInvalidOption 压缩选项无效
var ErrInvalidOption = errors.New("INVALID_MINIFY_OPTION")

// DefaultTarget 默认语言级别
const DefaultTarget = "es2015"

// Options 单次压缩调用的选项
// 插件构造时确定，之后只读
type Options struct {
	MinifyWhitespace  bool
	MinifyIdentifiers bool
	MinifySyntax      bool

	Sourcemap      bool // 要求同时生成 map
	SourcesContent bool // map 中内嵌压缩前源码

	// 透传给压缩器的选项
	Target        string   // esnext / es5 / es2015 ... es2024
	Charset       string   // "" / ascii / utf8
	LegalComments string   // "" / none / inline / eof
	KeepNames     bool
	Drop          []string // console / debugger
	Pure          []string // 视为无副作用的调用
}

var targets = map[string]api.Target{
	"esnext": api.ESNext,
	"es5":    api.ES5,
	"es6":    api.ES2015,
	"es2015": api.ES2015,
	"es2016": api.ES2016,
	"es2017": api.ES2017,
	"es2018": api.ES2018,
	"es2019": api.ES2019,
	"es2020": api.ES2020,
	"es2021": api.ES2021,
	"es2022": api.ES2022,
	"es2023": api.ES2023,
	"es2024": api.ES2024,
}

// Validate 检查透传选项是否能被压缩器识别
func (o Options) Validate() error {
	if _, err := parseTarget(o.Target); err != nil {
		return err
	}
	if _, err := parseCharset(o.Charset); err != nil {
		return err
	}
	if _, err := parseLegalComments(o.LegalComments); err != nil {
		return err
	}
	if _, err := parseDrop(o.Drop); err != nil {
		return err
	}
	return nil
}

func parseTarget(s string) (api.Target, error) {
	if s == "" {
		s = DefaultTarget
	}
	t, ok := targets[strings.ToLower(s)]
	if !ok {
		return api.DefaultTarget, fmt.Errorf("%w: unknown target %q", ErrInvalidOption, s)
	}
	return t, nil
}

func parseCharset(s string) (api.Charset, error) {
	switch strings.ToLower(s) {
	case "":
		return api.CharsetDefault, nil
	case "ascii":
		return api.CharsetASCII, nil
	case "utf8", "utf-8":
		return api.CharsetUTF8, nil
	default:
		return api.CharsetDefault, fmt.Errorf("%w: unknown charset %q", ErrInvalidOption, s)
	}
}

func parseLegalComments(s string) (api.LegalComments, error) {
	switch strings.ToLower(s) {
	case "":
		return api.LegalCommentsDefault, nil
	case "none":
		return api.LegalCommentsNone, nil
	case "inline":
		return api.LegalCommentsInline, nil
	case "eof":
		return api.LegalCommentsEndOfFile, nil
	default:
		return api.LegalCommentsDefault, fmt.Errorf("%w: unknown legal comments mode %q", ErrInvalidOption, s)
	}
}

func parseDrop(values []string) (api.Drop, error) {
	var d api.Drop
	for _, v := range values {
		switch strings.ToLower(v) {
		case "console":
			d |= api.DropConsole
		case "debugger":
			d |= api.DropDebugger
		default:
			return 0, fmt.Errorf("%w: cannot drop %q", ErrInvalidOption, v)
		}
	}
	return d, nil
}

// transformOptions 转换为 esbuild 的调用参数
func transformOptions(name string, o Options) (api.TransformOptions, error) {
	target, err := parseTarget(o.Target)
	if err != nil {
		return api.TransformOptions{}, err
	}
	charset, err := parseCharset(o.Charset)
	if err != nil {
		return api.TransformOptions{}, err
	}
	legal, err := parseLegalComments(o.LegalComments)
	if err != nil {
		return api.TransformOptions{}, err
	}
	drop, err := parseDrop(o.Drop)
	if err != nil {
		return api.TransformOptions{}, err
	}

	loader := api.LoaderJS
	if KindOf(name) == KindStyle {
		loader = api.LoaderCSS
	}

	opts := api.TransformOptions{
		Loader:            loader,
		Sourcefile:        name,
		Target:            target,
		Charset:           charset,
		LegalComments:     legal,
		KeepNames:         o.KeepNames,
		Drop:              drop,
		Pure:              o.Pure,
		MinifyWhitespace:  o.MinifyWhitespace,
		MinifyIdentifiers: o.MinifyIdentifiers,
		MinifySyntax:      o.MinifySyntax,
		LogLevel:          api.LogLevelSilent,
	}

	if o.Sourcemap {
		opts.Sourcemap = api.SourceMapExternal
		opts.SourcesContent = api.SourcesContentExclude
		if o.SourcesContent {
			opts.SourcesContent = api.SourcesContentInclude
		}
	}

	return opts, nil
}
