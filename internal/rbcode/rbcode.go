package rbcode

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/renameio/v2"

	"github.com/concuject/concuject/internal/bugmodel"
	"github.com/concuject/concuject/internal/inject"
	"github.com/concuject/concuject/internal/piece"
	"github.com/concuject/concuject/internal/variable"
)

//go:embed templates/*
var templates embed.FS

// PresetFiles are copied into the build tree unmodified (aside from
// {key} substitution against defs), alongside the generated state headers.
var PresetFiles = []string{"racebench.c", "racebench.h"}

const (
	stateDefine   = "racebench_bugs.h"
	stateInstance = "racebench_bugs.c"
)

// PrependDefs is the include line that lets injected code reference the
// per-bug state structs. PrependStateDefs queues it at line 0 of the one
// file it is given; the injector does not add it to the files it touches
// on its own, and cmd/concuject does not call PrependStateDefs.
var PrependDefs = []string{fmt.Sprintf("#include %q", stateDefine)}

const (
	structTypeDefine = "struct %s {\n    %s\n};\n"
	structFieldDefine = "%s %s;"
	structFieldSep     = "\n    "
	structInstance     = "struct %s %s = %s;"
	structExtern       = "extern struct %s %s;"
)

// StateStruct is one bug's state-struct declaration: its allocated
// variables, each becoming a field.
type StateStruct struct {
	BugID     int
	StateName string
	Vars      []variable.Variable
}

// StructName is the C type name of this bug's state struct.
func (s StateStruct) StructName() string {
	return fmt.Sprintf("rb_state%d_t", s.BugID)
}

// RaceBenchCode accumulates every bug's StateStruct across a whole
// extraction run and emits the combined C scaffolding once at the end.
type RaceBenchCode struct {
	buildPath string
	states    []StateStruct
}

func NewRaceBenchCode(buildPath string) *RaceBenchCode {
	return &RaceBenchCode{buildPath: buildPath}
}

// CopyPresetFiles writes every file in PresetFiles into the build tree,
// substituting any {key} placeholder defs names against defs' values.
func (c *RaceBenchCode) CopyPresetFiles(defs map[string]string) error {
	if err := mkdirBuildPath(c.buildPath); err != nil {
		return fmt.Errorf("rbcode: creating build path: %w", err)
	}
	for _, name := range PresetFiles {
		content, err := templates.ReadFile("templates/" + name)
		if err != nil {
			return fmt.Errorf("rbcode: reading preset %s: %w", name, err)
		}
		text := string(content)
		for k, v := range defs {
			text = strings.ReplaceAll(text, "{"+k+"}", v)
		}
		if err := renameio.WriteFile(filepath.Join(c.buildPath, name), []byte(text), 0o644); err != nil {
			return fmt.Errorf("rbcode: writing preset %s: %w", name, err)
		}
	}
	return nil
}

// PrependStateDefs queues the #include of the generated state header at
// the top of fileName, via injector.
func (c *RaceBenchCode) PrependStateDefs(injector *inject.Injector, fileName string) {
	loc := bugmodel.FileLine{Filename: filepath.Join(c.buildPath, fileName), Line: 0}
	injector.AddSite(loc, PrependDefs)
}

// AddState records one bug's allocated variables as a state struct to be
// emitted by DumpStateDefs.
func (c *RaceBenchCode) AddState(bug *bugmodel.Bug) {
	c.states = append(c.states, StateStruct{
		BugID:     bug.BugID,
		StateName: variable.StateName(bug.BugID),
		Vars:      bug.AllVars,
	})
}

// DumpStateDefs renders every recorded StateStruct into the two generated
// files: the header (macros, struct type defs, extern decls) and the
// translation unit (struct instances with their initializers).
func (c *RaceBenchCode) DumpStateDefs() error {
	var macros []string
	var structs []string
	var externs []string
	var instances []string

	for _, state := range c.states {
		macros = append(macros, "#define "+piece.BugMacro(state.BugID))

		var fields []string
		for _, v := range state.Vars {
			cType := v.Type.CType()
			if attr := v.Type.CAttribute(); attr != "" {
				cType = attr + " " + cType
			}
			fields = append(fields, fmt.Sprintf(structFieldDefine, cType, v.BaseName()))
		}
		structs = append(structs, fmt.Sprintf(structTypeDefine, state.StructName(), strings.Join(fields, structFieldSep)))

		var initValues []string
		for _, v := range state.Vars {
			initValues = append(initValues, v.Type.CInitializer())
		}
		init := "{" + strings.Join(initValues, ", ") + "}"
		externs = append(externs, fmt.Sprintf(structExtern, state.StructName(), state.StateName))
		instances = append(instances, fmt.Sprintf(structInstance, state.StructName(), state.StateName, init))
	}

	headerBody := strings.Join([]string{strings.Join(macros, "\n"), strings.Join(structs, ""), strings.Join(externs, "\n")}, "\n\n")
	if err := c.applyTemplate(stateDefine, headerBody); err != nil {
		return err
	}
	return c.applyTemplate(stateInstance, strings.Join(instances, "\n"))
}

func (c *RaceBenchCode) applyTemplate(name, code string) error {
	tmpl, err := templates.ReadFile("templates/" + name)
	if err != nil {
		return fmt.Errorf("rbcode: reading template %s: %w", name, err)
	}
	rendered := strings.Replace(string(tmpl), "{states}", code, 1)
	if err := renameio.WriteFile(filepath.Join(c.buildPath, name), []byte(rendered), 0o644); err != nil {
		return fmt.Errorf("rbcode: writing %s: %w", name, err)
	}
	return nil
}

// mkdirBuildPath ensures the build directory exists before any write —
// callers normally set this up once per run, but CopyPresetFiles/
// DumpStateDefs tolerate being the first thing to touch it.
func mkdirBuildPath(path string) error {
	return os.MkdirAll(path, 0o755)
}
