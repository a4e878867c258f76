// Package protoreg loads .proto files at run time and serves their message
// and enum types to the planner and to hosts building message values.
package protoreg

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/jhump/protoreflect/desc"
	"github.com/jhump/protoreflect/desc/protoparse"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/dynamicpb"

	"github.com/funvibe/expreval/internal/values"
)

var (
	ErrUnknownMessage = errors.New("unknown message type")
	ErrUnknownService = errors.New("unknown service")
)

// Registry holds the types of the loaded files. It is safe for concurrent
// use.
type Registry struct {
	mu       sync.RWMutex
	files    map[string]*desc.FileDescriptor
	messages map[string]protoreflect.MessageType
	enums    map[string]values.Enum
}

func New() *Registry {
	return &Registry{
		files:    make(map[string]*desc.FileDescriptor),
		messages: make(map[string]protoreflect.MessageType),
		enums:    make(map[string]values.Enum),
	}
}

// Load parses files, resolving imports against importPaths. The
// well-known google/protobuf imports are always available.
func (r *Registry) Load(importPaths []string, files ...string) error {
	if len(importPaths) == 0 {
		importPaths = []string{"."}
	}
	parser := protoparse.Parser{ImportPaths: importPaths}
	return r.parse(parser, files)
}

// LoadSource parses a single file held in memory.
func (r *Registry) LoadSource(name, source string) error {
	parser := protoparse.Parser{
		Accessor: protoparse.FileContentsFromMap(map[string]string{name: source}),
	}
	return r.parse(parser, []string{name})
}

func (r *Registry) parse(parser protoparse.Parser, files []string) error {
	fds, err := parser.ParseFiles(files...)
	if err != nil {
		return fmt.Errorf("failed to parse proto: %w", err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, fd := range fds {
		r.registerFile(fd)
	}
	return nil
}

func (r *Registry) registerFile(fd *desc.FileDescriptor) {
	if _, done := r.files[fd.GetName()]; done {
		return
	}
	r.files[fd.GetName()] = fd
	for _, dep := range fd.GetDependencies() {
		r.registerFile(dep)
	}
	for _, md := range fd.GetMessageTypes() {
		r.registerMessage(md)
	}
	for _, ed := range fd.GetEnumTypes() {
		r.registerEnum(ed)
	}
}

func (r *Registry) registerMessage(md *desc.MessageDescriptor) {
	if md.IsMapEntry() {
		return
	}
	r.messages[md.GetFullyQualifiedName()] = dynamicpb.NewMessageType(md.UnwrapMessage())
	for _, nested := range md.GetNestedMessageTypes() {
		r.registerMessage(nested)
	}
	for _, ed := range md.GetNestedEnumTypes() {
		r.registerEnum(ed)
	}
}

// registerEnum records each constant under Enum.CONSTANT.
func (r *Registry) registerEnum(ed *desc.EnumDescriptor) {
	name := ed.GetFullyQualifiedName()
	for _, v := range ed.GetValues() {
		r.enums[name+"."+v.GetName()] = values.Enum{TypeName: name, Number: v.GetNumber()}
	}
}

func (r *Registry) FindMessageType(name string) (protoreflect.MessageType, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	mt, ok := r.messages[name]
	return mt, ok
}

func (r *Registry) FindEnumValue(name string) (values.Enum, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.enums[name]
	return e, ok
}

// FindService returns the descriptor of a service by its full name.
func (r *Registry) FindService(name string) (*desc.ServiceDescriptor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, fd := range r.files {
		if sd := fd.FindService(name); sd != nil {
			return sd, nil
		}
	}
	return nil, fmt.Errorf("%s: %w", name, ErrUnknownService)
}

// MessageTypes returns the full names of the loaded message types, sorted.
func (r *Registry) MessageTypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.messages))
	for n := range r.messages {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// NewMessage builds a message value from field values, converting them the
// way message literals in expressions do.
func (r *Registry) NewMessage(name string, fields map[string]values.Value) (values.Value, error) {
	mt, ok := r.FindMessageType(name)
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, ErrUnknownMessage)
	}
	msg := mt.New()
	descFields := msg.Descriptor().Fields()
	for fname, v := range fields {
		fd := descFields.ByName(protoreflect.Name(fname))
		if fd == nil {
			return nil, fmt.Errorf("message %s has no field %q", name, fname)
		}
		if err := values.SetField(msg, fd, v); err != nil {
			return nil, fmt.Errorf("message %s: %s", name, err.Message)
		}
	}
	return values.FromProto(msg.Interface()), nil
}
