// Package server exposes the console runtime to editors over the
// Language Server Protocol.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"sync"

	"github.com/tliron/commonlog"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	glspserver "github.com/tliron/glsp/server"

	"github.com/GarageGames/Torque3D-sub044/console"

	_ "github.com/tliron/commonlog/simple"
)

const lspName = "torque-lsp"

// execCommand runs an open document in the runtime so its declarations
// become live for completion and hover. The single argument is the URI.
const execCommand = "torque.exec"

var log = commonlog.GetLogger("torque.server")

var errStopped = errors.New("runtime worker stopped")

type document struct {
	text    string
	symbols []Symbol
}

// LspServer bridges LSP editor features to a console runtime via Worker.
type LspServer struct {
	worker *Worker

	mu   sync.Mutex
	docs map[string]*document // URI → latest content

	handler protocol.Handler
	server  *glspserver.Server
	version string
}

// NewLSP creates a new LSP server wrapping the given runtime.
func NewLSP(rt *console.Runtime) *LspServer {
	s := &LspServer{
		worker:  NewWorker(rt),
		docs:    make(map[string]*document),
		version: "0.1.0",
	}

	s.handler = protocol.Handler{
		Initialize:  s.initialize,
		Initialized: s.initialized,
		Shutdown:    s.shutdown,
		SetTrace:    s.setTrace,

		TextDocumentDidOpen:   s.textDocumentDidOpen,
		TextDocumentDidChange: s.textDocumentDidChange,
		TextDocumentDidClose:  s.textDocumentDidClose,

		TextDocumentCompletion: s.textDocumentCompletion,
		TextDocumentHover:      s.textDocumentHover,
		TextDocumentDefinition: s.textDocumentDefinition,

		WorkspaceExecuteCommand: s.workspaceExecuteCommand,
	}

	s.server = glspserver.NewServer(&s.handler, lspName, false)

	return s
}

// Run starts the LSP server on stdio. Blocks until the client disconnects.
func (s *LspServer) Run() error {
	return s.server.RunStdio()
}

// RunTCP serves a single editor connection on address.
func (s *LspServer) RunTCP(address string) error {
	return s.server.RunTCP(address)
}

// --- LSP lifecycle handlers ---

func (s *LspServer) initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	log.Info("TorqueScript LSP initializing")

	capabilities := s.handler.CreateServerCapabilities()

	syncKind := protocol.TextDocumentSyncKindFull
	capabilities.TextDocumentSync = &protocol.TextDocumentSyncOptions{
		OpenClose: boolPtr(true),
		Change:    &syncKind,
	}

	capabilities.CompletionProvider = &protocol.CompletionOptions{
		TriggerCharacters: []string{":", "$", "%"},
	}

	capabilities.HoverProvider = true
	capabilities.DefinitionProvider = true
	capabilities.ExecuteCommandProvider = &protocol.ExecuteCommandOptions{
		Commands: []string{execCommand},
	}

	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    lspName,
			Version: &s.version,
		},
	}, nil
}

func (s *LspServer) initialized(ctx *glsp.Context, params *protocol.InitializedParams) error {
	return nil
}

func (s *LspServer) shutdown(ctx *glsp.Context) error {
	s.worker.Stop()
	return nil
}

func (s *LspServer) setTrace(ctx *glsp.Context, params *protocol.SetTraceParams) error {
	return nil
}

// --- Document synchronization ---

func (s *LspServer) textDocumentDidOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	diags := s.update(params.TextDocument.URI, params.TextDocument.Text)
	s.publish(ctx, params.TextDocument.URI, diags)
	return nil
}

func (s *LspServer) textDocumentDidChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	// With Full sync, the last change event contains the full text
	if len(params.ContentChanges) > 0 {
		last := params.ContentChanges[len(params.ContentChanges)-1]
		if whole, ok := last.(protocol.TextDocumentContentChangeEventWhole); ok {
			diags := s.update(params.TextDocument.URI, whole.Text)
			s.publish(ctx, params.TextDocument.URI, diags)
		}
	}
	return nil
}

func (s *LspServer) textDocumentDidClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	s.mu.Lock()
	delete(s.docs, string(params.TextDocument.URI))
	s.mu.Unlock()

	s.publish(ctx, params.TextDocument.URI, []protocol.Diagnostic{})
	return nil
}

// update stores a document's latest text and returns its diagnostics.
func (s *LspServer) update(uri protocol.DocumentUri, text string) []protocol.Diagnostic {
	a := Analyze(uriPath(uri), text)
	s.mu.Lock()
	s.docs[string(uri)] = &document{text: text, symbols: a.Symbols}
	s.mu.Unlock()
	if a.Diagnostics == nil {
		return []protocol.Diagnostic{}
	}
	return a.Diagnostics
}

func (s *LspServer) publish(ctx *glsp.Context, uri protocol.DocumentUri, diags []protocol.Diagnostic) {
	go ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: diags,
	})
}

func (s *LspServer) document(uri protocol.DocumentUri) *document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.docs[string(uri)]
}

// --- Language features ---

func (s *LspServer) textDocumentCompletion(ctx *glsp.Context, params *protocol.CompletionParams) (any, error) {
	doc := s.document(params.TextDocument.URI)
	if doc == nil {
		return nil, nil
	}
	prefix := extractPrefix(doc.text, params.Position)
	if prefix == "" {
		return nil, nil
	}

	result, err := s.worker.Query(context.Background(), func(rt *console.Runtime) interface{} {
		return s.complete(rt, prefix)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *LspServer) textDocumentHover(ctx *glsp.Context, params *protocol.HoverParams) (*protocol.Hover, error) {
	doc := s.document(params.TextDocument.URI)
	if doc == nil {
		return nil, nil
	}
	word := extractWord(doc.text, params.Position)
	if word == "" {
		return nil, nil
	}

	result, err := s.worker.Query(context.Background(), func(rt *console.Runtime) interface{} {
		return s.hover(rt, word)
	})
	if err != nil || result == nil {
		return nil, nil
	}
	return result.(*protocol.Hover), nil
}

func (s *LspServer) textDocumentDefinition(ctx *glsp.Context, params *protocol.DefinitionParams) (any, error) {
	doc := s.document(params.TextDocument.URI)
	if doc == nil {
		return nil, nil
	}
	word := extractWord(doc.text, params.Position)
	if word == "" {
		return nil, nil
	}

	result, err := s.worker.Query(context.Background(), func(rt *console.Runtime) interface{} {
		return s.definition(rt, word)
	})
	if err != nil || result == nil {
		return nil, nil
	}
	return result, nil
}

func (s *LspServer) workspaceExecuteCommand(ctx *glsp.Context, params *protocol.ExecuteCommandParams) (any, error) {
	if params.Command != execCommand {
		return nil, fmt.Errorf("unknown command %q", params.Command)
	}
	if len(params.Arguments) != 1 {
		return nil, fmt.Errorf("%s takes a document URI", execCommand)
	}
	uri, ok := params.Arguments[0].(string)
	if !ok {
		return nil, fmt.Errorf("%s: argument is not a URI", execCommand)
	}
	ex, err := s.execDocument(context.Background(), protocol.DocumentUri(uri))
	if err != nil {
		return nil, err
	}
	if ex.Output != "" {
		go ctx.Notify(protocol.ServerWindowLogMessage, protocol.LogMessageParams{
			Type:    protocol.MessageTypeLog,
			Message: strings.TrimRight(ex.Output, "\n"),
		})
	}
	return ex, nil
}

// execDocument runs the latest text of an open document.
func (s *LspServer) execDocument(ctx context.Context, uri protocol.DocumentUri) (Execution, error) {
	doc := s.document(uri)
	if doc == nil {
		return Execution{}, fmt.Errorf("%s is not open", uri)
	}
	log.Infof("executing %s", uri)
	return s.worker.Exec(ctx, uriPath(uri), doc.text)
}

// --- Runtime-backed logic (called on worker goroutine) ---

func (s *LspServer) complete(rt *console.Runtime, prefix string) []protocol.CompletionItem {
	var items []protocol.CompletionItem
	seen := make(map[string]bool)
	lowerPrefix := strings.ToLower(prefix)
	add := func(label, detail string, kind protocol.CompletionItemKind) {
		key := strings.ToLower(label)
		if seen[key] || !strings.HasPrefix(key, lowerPrefix) {
			return
		}
		seen[key] = true
		labelCopy, detailCopy := label, detail
		items = append(items, protocol.CompletionItem{
			Label:      label,
			Kind:       &kind,
			Detail:     &detailCopy,
			InsertText: &labelCopy,
		})
	}

	switch prefix[0] {
	case '$':
		for _, name := range rt.Globals().Names() {
			add(name, "global", protocol.CompletionItemKindVariable)
		}
	case '%':
		// locals only exist inside a running call
	default:
		// Document symbols first so they win over stale runtime copies
		s.mu.Lock()
		for _, doc := range s.docs {
			for _, sym := range doc.symbols {
				add(sym.Qualified(), signature(sym), protocol.CompletionItemKindFunction)
			}
		}
		s.mu.Unlock()

		for _, class := range rt.Classes() {
			add(class, "class", protocol.CompletionItemKindClass)
		}
		for _, ns := range rt.Docs() {
			if ns.Package != "" {
				continue
			}
			for _, e := range ns.Entries {
				if e.Kind == console.GroupMarker.String() {
					continue
				}
				label := e.Name
				if ns.Name != "" {
					label = ns.Name + "::" + e.Name
				}
				detail := e.Usage
				if detail == "" {
					detail = e.Kind
				}
				add(label, detail, protocol.CompletionItemKindFunction)
			}
		}
	}

	sort.Slice(items, func(i, j int) bool { return items[i].Label < items[j].Label })

	// Limit results
	const maxItems = 100
	if len(items) > maxItems {
		items = items[:maxItems]
	}
	return items
}

func (s *LspServer) hover(rt *console.Runtime, word string) *protocol.Hover {
	var text string
	switch {
	case strings.HasPrefix(word, "$"):
		v, ok := rt.Globals().GetVariable(word)
		if !ok {
			return nil
		}
		text = fmt.Sprintf("**%s** = `%s`", word, console.ExpandEscape(v))
	case rt.IsClass(word):
		ns := rt.LookupNamespace(word, "")
		text = fmt.Sprintf("**class %s**", word)
		if ns != nil && ns.Parent() != nil {
			text += fmt.Sprintf(" : %s", ns.Parent())
		}
	default:
		if e := lookupFunction(rt, word); e != nil {
			text = describeEntry(e)
		} else if obj := rt.FindObject(word); obj != nil {
			text = fmt.Sprintf("**%s** (%d) : %s", obj.Name(), obj.ID, obj.ClassName())
		} else if sym, _, ok := s.findSymbol(word); ok {
			text = fmt.Sprintf("```torquescript\n%s\n```", signature(sym))
		}
	}
	if text == "" {
		return nil
	}
	return &protocol.Hover{
		Contents: protocol.MarkupContent{
			Kind:  protocol.MarkupKindMarkdown,
			Value: text,
		},
	}
}

func (s *LspServer) definition(rt *console.Runtime, word string) []protocol.Location {
	if sym, uri, ok := s.findSymbol(word); ok {
		return []protocol.Location{lineLocation(uri, sym.Line)}
	}
	e := lookupFunction(rt, word)
	if e == nil || e.Code == nil {
		return nil
	}
	return []protocol.Location{lineLocation(fileURI(e.Code.Name), int(e.Line))}
}

// findSymbol looks word up among the declarations of open documents.
func (s *LspServer) findSymbol(word string) (Symbol, protocol.DocumentUri, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	uris := make([]string, 0, len(s.docs))
	for uri := range s.docs {
		uris = append(uris, uri)
	}
	sort.Strings(uris)
	for _, uri := range uris {
		for _, sym := range s.docs[uri].symbols {
			if strings.EqualFold(sym.Qualified(), word) {
				return sym, protocol.DocumentUri(uri), true
			}
		}
	}
	return Symbol{}, "", false
}

// lookupFunction resolves "name" or "Ns::name" against the live namespaces.
func lookupFunction(rt *console.Runtime, word string) *console.Entry {
	nsName, fn := "", word
	if i := strings.LastIndex(word, "::"); i >= 0 {
		nsName, fn = word[:i], word[i+2:]
	}
	var ns *console.Namespace
	if nsName == "" {
		ns = rt.Global
	} else {
		ns = rt.LookupNamespace(nsName, "")
	}
	if ns == nil {
		return nil
	}
	e := ns.LookupString(fn)
	if e == nil || e.Kind == console.GroupMarker {
		return nil
	}
	return e
}

func describeEntry(e *console.Entry) string {
	var b strings.Builder
	fmt.Fprintf(&b, "**%s** [%s]", e.QualifiedName(), e.Kind)
	if e.Usage != "" {
		fmt.Fprintf(&b, "\n\n```\n%s\n```", e.Usage)
	}
	if e.Code != nil {
		fmt.Fprintf(&b, "\n\n%s:%d", e.Code.Name, e.Line)
	}
	return b.String()
}

func signature(sym Symbol) string {
	sig := fmt.Sprintf("function %s(%s)", sym.Qualified(), strings.Join(sym.Args, ", "))
	if sym.Package != "" {
		sig = "[" + sym.Package + "] " + sig
	}
	return sig
}

func lineLocation(uri protocol.DocumentUri, line int) protocol.Location {
	if line > 0 {
		line--
	}
	pos := protocol.Position{Line: protocol.UInteger(line), Character: 0}
	return protocol.Location{URI: uri, Range: protocol.Range{Start: pos, End: pos}}
}

// uriPath turns a file:// URI into the path used in compiler messages.
func uriPath(uri protocol.DocumentUri) string {
	u, err := url.Parse(string(uri))
	if err != nil || u.Scheme != "file" {
		return string(uri)
	}
	return u.Path
}

func fileURI(path string) protocol.DocumentUri {
	if strings.Contains(path, "://") {
		return protocol.DocumentUri(path)
	}
	return protocol.DocumentUri((&url.URL{Scheme: "file", Path: path}).String())
}

// --- Text extraction helpers ---

func isIdentByte(ch byte) bool {
	return ch == '_' || ch >= '0' && ch <= '9' || ch >= 'a' && ch <= 'z' || ch >= 'A' && ch <= 'Z'
}

func cursorLine(text string, pos protocol.Position) (string, int, bool) {
	lines := strings.Split(text, "\n")
	if int(pos.Line) >= len(lines) {
		return "", 0, false
	}
	line := lines[pos.Line]
	col := int(pos.Character)
	if col > len(line) {
		col = len(line)
	}
	return line, col, true
}

// scanBack returns the start of the identifier, scope operator and sigil
// run that ends at col.
func scanBack(line string, col int) int {
	start := col
	for start > 0 && (isIdentByte(line[start-1]) || line[start-1] == ':') {
		start--
	}
	if start > 0 && (line[start-1] == '$' || line[start-1] == '%') {
		start--
	}
	return start
}

// extractPrefix returns the word fragment before the cursor for completion.
func extractPrefix(text string, pos protocol.Position) string {
	line, col, ok := cursorLine(text, pos)
	if !ok {
		return ""
	}
	start := scanBack(line, col)
	if start == col {
		return ""
	}
	return line[start:col]
}

// extractWord returns the full identifier under the cursor, including a
// leading sigil and any Ns:: qualifier.
func extractWord(text string, pos protocol.Position) string {
	line, col, ok := cursorLine(text, pos)
	if !ok {
		return ""
	}
	start := scanBack(line, col)
	end := col
	for end < len(line) && (isIdentByte(line[end]) || line[end] == ':') {
		end++
	}
	word := strings.Trim(line[start:end], ":")
	if word == "$" || word == "%" {
		return ""
	}
	return word
}

func boolPtr(b bool) *bool {
	return &b
}
