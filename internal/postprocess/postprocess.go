package postprocess

import (
	"fmt"
	"go/format"
	"path/filepath"
	"strings"

	"golang.org/x/tools/imports"
)

// Processor transforms the content of one rendered file. Processors return
// content unchanged for file types they do not handle.
type Processor interface {
	ProcessContent(filePath string, content []byte) ([]byte, error)
}

// ProcessorFunc adapts a function to Processor.
type ProcessorFunc func(filePath string, content []byte) ([]byte, error)

// ProcessContent implements Processor.
func (f ProcessorFunc) ProcessContent(filePath string, content []byte) ([]byte, error) {
	return f(filePath, content)
}

// Chain runs processors in sequence.
type Chain struct {
	processors []Processor
}

// NewChain returns a chain holding processors.
func NewChain(processors ...Processor) *Chain {
	return &Chain{processors: processors}
}

// Default returns the chain applied to every scaffold: Go formatting.
func Default() *Chain {
	return NewChain(NewGoFormat())
}

// Add appends a processor.
func (c *Chain) Add(p Processor) {
	c.processors = append(c.processors, p)
}

// Len returns the number of processors in the chain.
func (c *Chain) Len() int {
	return len(c.processors)
}

// Process runs every processor on content. The first failure stops the
// chain.
func (c *Chain) Process(filePath string, content []byte) ([]byte, error) {
	if c == nil {
		return content, nil
	}
	result := content
	for i, p := range c.processors {
		processed, err := p.ProcessContent(filePath, result)
		if err != nil {
			return nil, fmt.Errorf("processor %d failed for %s: %w", i, filePath, err)
		}
		result = processed
	}
	return result, nil
}

// GoFormat formats Go sources and sorts their imports without adding or
// removing any, so generated files that import not-yet-generated packages
// are left intact.
type GoFormat struct {
	TabWidth int
}

// NewGoFormat returns a GoFormat with gofmt's tab width.
func NewGoFormat() *GoFormat {
	return &GoFormat{TabWidth: 8}
}

// ProcessContent implements Processor.
func (g *GoFormat) ProcessContent(filePath string, content []byte) ([]byte, error) {
	if strings.ToLower(filepath.Ext(filePath)) != ".go" {
		return content, nil
	}

	formatted, err := imports.Process(filePath, content, &imports.Options{
		FormatOnly: true,
		Comments:   true,
		TabIndent:  true,
		TabWidth:   g.TabWidth,
	})
	if err != nil {
		// Fall back to plain gofmt so the reported error names the syntax problem.
		formatted, fmtErr := format.Source(content)
		if fmtErr != nil {
			return nil, fmt.Errorf("formatting Go source: %w", fmtErr)
		}
		return formatted, nil
	}
	return formatted, nil
}
