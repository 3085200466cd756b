package ocr

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ironsheep/searchpdf-mcp/internal/lang"
	"github.com/ironsheep/searchpdf-mcp/internal/procexec"
	"github.com/ironsheep/searchpdf-mcp/internal/raster"
)

// DefaultTesseractTool is the executable used by the cli backend.
const DefaultTesseractTool = "tesseract"

// ErrLanguageMissing is returned when traineddata for a code is not installed.
var ErrLanguageMissing = errors.New("language data not installed")

// TSV column indexes of `tesseract ... tsv` output.
const (
	tsvLevel = iota
	tsvPage
	tsvBlock
	tsvPar
	tsvLine
	tsvWord
	tsvLeft
	tsvTop
	tsvWidth
	tsvHeight
	tsvConf
	tsvText
	tsvColumns
)

const tsvWordLevel = "5"

// CLIBackend runs the tesseract executable once per page.
type CLIBackend struct {
	invoker        procexec.Invoker
	tool           string
	tessdataPrefix string
	pageSegMode    int
	timeout        time.Duration
	logger         *zap.Logger
}

// NewCLIBackend creates the executable-based backend.
func NewCLIBackend(opts BackendOptions) *CLIBackend {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.PageSegMode == 0 {
		opts.PageSegMode = DefaultPageSegMode
	}
	if opts.Invoker == nil {
		opts.Invoker = procexec.NewExecInvoker(opts.Logger)
	}
	if opts.Tool == "" {
		opts.Tool = DefaultTesseractTool
	}
	return &CLIBackend{
		invoker:        opts.Invoker,
		tool:           opts.Tool,
		tessdataPrefix: opts.TessdataPrefix,
		pageSegMode:    opts.PageSegMode,
		timeout:        opts.Timeout,
		logger:         opts.Logger,
	}
}

// Name implements Backend.
func (b *CLIBackend) Name() string { return BackendCLI }

func (b *CLIBackend) baseArgs() []string {
	if b.tessdataPrefix == "" {
		return nil
	}
	return []string{"--tessdata-dir", b.tessdataPrefix}
}

// Init implements Backend by checking that every code in language is listed
// by `tesseract --list-langs`.
func (b *CLIBackend) Init(ctx context.Context, language string) (Recognizer, error) {
	res, err := b.invoker.Run(ctx, procexec.Command{
		Name:    b.tool,
		Args:    append(b.baseArgs(), "--list-langs"),
		Timeout: b.timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("list tesseract languages: %w", err)
	}
	if res.ExitCode != 0 {
		return nil, fmt.Errorf("list tesseract languages: exit status %d: %s",
			res.ExitCode, procexec.Excerpt(res.Stderr, 512))
	}

	// Older releases print the list on stderr.
	installed := parseLangList(append(res.Stdout, res.Stderr...))
	for _, code := range lang.Spec(language).Codes() {
		if !installed[code] {
			return nil, fmt.Errorf("%w: %s", ErrLanguageMissing, code)
		}
	}

	b.logger.Debug("tesseract languages available",
		zap.String("lang", language), zap.Int("installed", len(installed)))
	return &cliRecognizer{backend: b, language: language}, nil
}

func parseLangList(out []byte) map[string]bool {
	langs := make(map[string]bool)
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "List of available languages") || strings.ContainsAny(line, " :") {
			continue
		}
		langs[line] = true
	}
	return langs
}

type cliRecognizer struct {
	backend  *CLIBackend
	language string
}

func (r *cliRecognizer) Recognize(ctx context.Context, img raster.PageImage) ([]Word, error) {
	b := r.backend
	args := append(b.baseArgs(),
		"stdin", "stdout",
		"-l", r.language,
		"--psm", strconv.Itoa(b.pageSegMode),
		"tsv",
	)
	res, err := b.invoker.Run(ctx, procexec.Command{
		Name:    b.tool,
		Args:    args,
		Stdin:   img.Data,
		Timeout: b.timeout,
	})
	if err != nil {
		return nil, err
	}
	if res.ExitCode != 0 {
		return nil, fmt.Errorf("tesseract exit status %d: %s", res.ExitCode, procexec.Excerpt(res.Stderr, 512))
	}
	return ParseTSV(res.Stdout), nil
}

func (r *cliRecognizer) Close() error { return nil }

// ParseTSV extracts word-level rows from tesseract TSV output. Rows that are
// not words or whose numeric columns do not parse are skipped.
func ParseTSV(data []byte) []Word {
	var words []Word
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for sc.Scan() {
		cols := strings.Split(strings.TrimRight(sc.Text(), "\r"), "\t")
		if len(cols) < tsvColumns || cols[tsvLevel] != tsvWordLevel {
			continue
		}

		var nums [4]float64
		ok := true
		for i, col := range []int{tsvLeft, tsvTop, tsvWidth, tsvHeight} {
			v, err := strconv.ParseFloat(cols[col], 64)
			if err != nil {
				ok = false
				break
			}
			nums[i] = v
		}
		if !ok {
			continue
		}
		conf, err := strconv.ParseFloat(cols[tsvConf], 64)
		if err != nil {
			conf = 0
		}

		words = append(words, Word{
			Text:       strings.Join(cols[tsvText:], "\t"),
			Confidence: conf / 100.0,
			Box: BoundingBox{
				X0: nums[0],
				Y0: nums[1],
				X1: nums[0] + nums[2],
				Y1: nums[1] + nums[3],
			},
		})
	}
	return words
}
