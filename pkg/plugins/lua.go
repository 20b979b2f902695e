// Package plugins hosts user scripts that customize term processing.
package plugins

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	lua "github.com/yuin/gopher-lua"

	"github.com/zpam/trecprep/pkg/learning"
)

// FilterFunction is the global the script must define:
//
//	function filter(term) return term end
//
// Returning a string replaces the term; nil or false drops it.
const FilterFunction = "filter"

// vmWaitTimeout bounds how long a call waits for a pooled VM.
const vmWaitTimeout = 5 * time.Second

// LuaMetadata is read from the leading "-- @key value" comments of a script.
type LuaMetadata struct {
	Name        string
	Version     string
	Description string
}

// LuaTermFilter runs a Lua script's filter function on every stemmed term.
// A pool of VMs lets extraction workers call it concurrently.
type LuaTermFilter struct {
	meta       LuaMetadata
	scriptPath string

	vmPool chan *lua.LState
	maxVMs int

	errors  atomic.Int64
	created atomic.Int64
	log     *slog.Logger
}

// NewLuaTermFilter loads the script into maxVMs VMs up front so script
// errors surface before extraction starts.
func NewLuaTermFilter(scriptPath string, maxVMs int) (*LuaTermFilter, error) {
	meta, err := extractLuaMetadata(scriptPath)
	if err != nil {
		return nil, fmt.Errorf("failed to extract metadata: %w", err)
	}
	if maxVMs <= 0 {
		maxVMs = 4
	}

	lf := &LuaTermFilter{
		meta:       *meta,
		scriptPath: scriptPath,
		vmPool:     make(chan *lua.LState, maxVMs),
		maxVMs:     maxVMs,
		log:        slog.Default().With("component", "lua", "script", meta.Name),
	}

	for i := 0; i < maxVMs; i++ {
		vm, err := lf.createVM()
		if err != nil {
			lf.Close()
			return nil, err
		}
		if vm.GetGlobal(FilterFunction).Type() != lua.LTFunction {
			vm.Close()
			lf.Close()
			return nil, fmt.Errorf("script %s does not define function %s", scriptPath, FilterFunction)
		}
		lf.vmPool <- vm
	}
	return lf, nil
}

// Metadata returns the script's metadata.
func (lf *LuaTermFilter) Metadata() LuaMetadata {
	return lf.meta
}

// Errors returns how many calls failed. Failed calls keep the term.
func (lf *LuaTermFilter) Errors() int64 {
	return lf.errors.Load()
}

// Filter implements learning.TermFilter.
func (lf *LuaTermFilter) Filter(term string) (string, bool) {
	vm := lf.getVM()
	if vm == nil {
		lf.errors.Add(1)
		return term, true
	}
	defer lf.returnVM(vm)

	err := vm.CallByParam(lua.P{
		Fn:      vm.GetGlobal(FilterFunction),
		NRet:    1,
		Protect: true,
	}, lua.LString(term))
	if err != nil {
		if lf.errors.Add(1) == 1 {
			lf.log.Warn("lua filter failed, keeping terms unchanged", "term", term, "error", err)
		}
		return term, true
	}

	ret := vm.Get(-1)
	vm.Pop(1)
	switch v := ret.(type) {
	case lua.LString:
		return string(v), true
	case *lua.LNilType:
		return "", false
	case lua.LBool:
		if !bool(v) {
			return "", false
		}
	}
	return term, true
}

// Close shuts down all pooled VMs.
func (lf *LuaTermFilter) Close() error {
	for {
		select {
		case vm := <-lf.vmPool:
			vm.Close()
		default:
			return nil
		}
	}
}

func (lf *LuaTermFilter) createVM() (*lua.LState, error) {
	lf.created.Add(1)
	vm := lua.NewState()
	lf.registerAPI(vm)

	if err := vm.DoFile(lf.scriptPath); err != nil {
		vm.Close()
		return nil, fmt.Errorf("failed to load script %s: %w", lf.scriptPath, err)
	}
	return vm, nil
}

// getVM waits for a pooled VM. It returns nil after vmWaitTimeout.
func (lf *LuaTermFilter) getVM() *lua.LState {
	select {
	case vm := <-lf.vmPool:
		return vm
	default:
	}

	timer := time.NewTimer(vmWaitTimeout)
	defer timer.Stop()
	select {
	case vm := <-lf.vmPool:
		return vm
	case <-timer.C:
		lf.log.Warn("timed out waiting for a lua vm", "max_vms", lf.maxVMs)
		return nil
	}
}

func (lf *LuaTermFilter) returnVM(vm *lua.LState) {
	select {
	case lf.vmPool <- vm:
	default:
		vm.Close()
	}
}

// registerAPI exposes helper functions under the "trecprep" global.
func (lf *LuaTermFilter) registerAPI(vm *lua.LState) {
	api := vm.NewTable()
	vm.SetGlobal("trecprep", api)

	vm.SetField(api, "log", vm.NewFunction(lf.luaLog))
	vm.SetField(api, "contains", vm.NewFunction(luaContains))
	vm.SetField(api, "has_prefix", vm.NewFunction(luaHasPrefix))
}

func (lf *LuaTermFilter) luaLog(vm *lua.LState) int {
	lf.log.Info(vm.CheckString(1))
	return 0
}

func luaContains(vm *lua.LState) int {
	haystack := vm.CheckString(1)
	needle := vm.CheckString(2)
	vm.Push(lua.LBool(strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))))
	return 1
}

func luaHasPrefix(vm *lua.LState) int {
	vm.Push(lua.LBool(strings.HasPrefix(vm.CheckString(1), vm.CheckString(2))))
	return 1
}

// extractLuaMetadata parses "-- @name", "-- @version" and "-- @description"
// from the comment block at the top of the script.
func extractLuaMetadata(scriptPath string) (*LuaMetadata, error) {
	content, err := os.ReadFile(scriptPath)
	if err != nil {
		return nil, err
	}

	meta := &LuaMetadata{
		Name:        filepath.Base(scriptPath),
		Version:     "1.0.0",
		Description: "Lua term filter",
	}
	for _, line := range strings.Split(string(content), "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "--") {
			break
		}
		comment := strings.TrimSpace(strings.TrimPrefix(line, "--"))
		for key, field := range map[string]*string{
			"@name":        &meta.Name,
			"@version":     &meta.Version,
			"@description": &meta.Description,
		} {
			if strings.HasPrefix(comment, key) {
				*field = strings.TrimSpace(strings.TrimPrefix(comment, key))
			}
		}
	}
	return meta, nil
}

var _ learning.TermFilter = (*LuaTermFilter)(nil)
