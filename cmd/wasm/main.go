//go:build js && wasm

// The wasm build embeds the editor core directly in the browser for offline
// use: the frontend feeds it pointer/wheel/key events and pulls render
// packets, with no server round trip.
package main

import (
	"encoding/json"
	"syscall/js"

	"github.com/latticeapp/lattice/backend-go/internal/camera"
	"github.com/latticeapp/lattice/backend-go/internal/document"
	"github.com/latticeapp/lattice/backend-go/internal/editor"
	"github.com/latticeapp/lattice/backend-go/internal/geom"
	"github.com/latticeapp/lattice/backend-go/internal/tool"
)

var (
	ed       *editor.Editor
	onRender js.Value
)

func main() {
	ed = newEditor(document.NewEmptyDocument("Untitled"))

	api := js.Global().Get("Object").New()

	// Document lifecycle.
	api.Set("loadDocument", js.FuncOf(loadDocument))
	api.Set("loadSampleDocument", js.FuncOf(loadSampleDocument))
	api.Set("newDocument", js.FuncOf(newDocument))
	api.Set("exportDocument", js.FuncOf(exportDocument))

	// Input.
	api.Set("pointerDown", js.FuncOf(pointerHandler((*editor.Editor).PointerDown)))
	api.Set("pointerMove", js.FuncOf(pointerHandler((*editor.Editor).PointerMove)))
	api.Set("pointerUp", js.FuncOf(pointerHandler((*editor.Editor).PointerUp)))
	api.Set("pointerCancel", js.FuncOf(pointerHandler((*editor.Editor).PointerCancel)))
	api.Set("wheel", js.FuncOf(wheel))
	api.Set("key", js.FuncOf(key))

	// Tools and history.
	api.Set("setTool", js.FuncOf(setTool))
	api.Set("activeTool", js.FuncOf(activeTool))
	api.Set("undo", js.FuncOf(undo))
	api.Set("redo", js.FuncOf(redo))
	api.Set("historyState", js.FuncOf(historyState))

	// Camera and viewport.
	api.Set("setViewport", js.FuncOf(setViewport))
	api.Set("setCamera", js.FuncOf(setCamera))
	api.Set("cameraState", js.FuncOf(cameraState))

	// Queries.
	api.Set("render", js.FuncOf(render))
	api.Set("needsRender", js.FuncOf(needsRender))
	api.Set("hitTest", js.FuncOf(hitTest))

	// Render push: the editor invalidates, the frontend schedules a rAF.
	api.Set("setOnRender", js.FuncOf(setOnRender))

	js.Global().Set("latticeEditor", api)
	js.Global().Set("latticeWasmReady", js.ValueOf(true))

	select {}
}

func newEditor(doc *document.DocumentModel) *editor.Editor {
	vp := camera.Viewport{Width: 1280, Height: 720, PixelRatio: 1}
	e := editor.New(doc, vp, 0)
	e.SetOnInvalidate(func() {
		if !onRender.IsUndefined() && onRender.Type() == js.TypeFunction {
			onRender.Invoke()
		}
	})
	return e
}

func errResult(err error) interface{} {
	return js.ValueOf(map[string]interface{}{"error": err.Error()})
}

func okResult() interface{} {
	return js.ValueOf(map[string]interface{}{"ok": true})
}

// --- document lifecycle ---

func loadDocument(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return js.ValueOf(map[string]interface{}{"error": "missing document JSON"})
	}
	doc, err := document.Deserialize([]byte(args[0].String()))
	if err != nil {
		return errResult(err)
	}
	ed.ReplaceDocument(doc)
	return okResult()
}

func loadSampleDocument(this js.Value, args []js.Value) interface{} {
	name := "Sample"
	if len(args) > 0 && args[0].Type() == js.TypeString {
		name = args[0].String()
	}
	ed.ReplaceDocument(document.NewSampleDocument(name))
	return okResult()
}

func newDocument(this js.Value, args []js.Value) interface{} {
	name := "Untitled"
	if len(args) > 0 && args[0].Type() == js.TypeString {
		name = args[0].String()
	}
	ed.ReplaceDocument(document.NewEmptyDocument(name))
	return okResult()
}

func exportDocument(this js.Value, args []js.Value) interface{} {
	data, err := document.Serialize(ed.Document())
	if err != nil {
		return errResult(err)
	}
	return js.ValueOf(string(data))
}

// --- input ---

func pointerHandler(fn func(*editor.Editor, tool.PointerEvent)) func(js.Value, []js.Value) interface{} {
	return func(this js.Value, args []js.Value) interface{} {
		if len(args) < 1 || args[0].Type() != js.TypeObject {
			return nil
		}
		o := args[0]
		ev := tool.PointerEvent{
			ID:    int64(o.Get("id").Int()),
			Kind:  tool.PointerKind(o.Get("kind").String()),
			X:     o.Get("x").Float(),
			Y:     o.Get("y").Float(),
			Shift: o.Get("shift").Truthy(),
			Alt:   o.Get("alt").Truthy(),
		}
		fn(ed, ev)
		return nil
	}
}

func wheel(this js.Value, args []js.Value) interface{} {
	if len(args) < 3 {
		return nil
	}
	ed.Wheel(tool.WheelEvent{
		X:     args[0].Float(),
		Y:     args[1].Float(),
		Delta: args[2].Float(),
	})
	return nil
}

func key(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 || args[0].Type() != js.TypeObject {
		return js.ValueOf(false)
	}
	o := args[0]
	consumed := ed.HandleKey(editor.KeyEvent{
		Key:   o.Get("key").String(),
		Ctrl:  o.Get("ctrl").Truthy(),
		Shift: o.Get("shift").Truthy(),
		Meta:  o.Get("meta").Truthy(),
	})
	return js.ValueOf(consumed)
}

// --- tools and history ---

func setTool(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return js.ValueOf(map[string]interface{}{"error": "missing tool name"})
	}
	if err := ed.SetTool(args[0].String()); err != nil {
		return errResult(err)
	}
	return okResult()
}

func activeTool(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(ed.ActiveTool())
}

func undo(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(ed.UndoEdit())
}

func redo(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(ed.RedoEdit())
}

func historyState(this js.Value, args []js.Value) interface{} {
	canUndo, canRedo := ed.HistoryState()
	return js.ValueOf(map[string]interface{}{
		"canUndo": canUndo,
		"canRedo": canRedo,
	})
}

// --- camera ---

func setViewport(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return nil
	}
	vp := camera.Viewport{
		Width:      args[0].Float(),
		Height:     args[1].Float(),
		PixelRatio: 1,
	}
	if len(args) > 2 {
		vp.PixelRatio = args[2].Float()
	}
	ed.SetViewport(vp)
	return nil
}

func setCamera(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return nil
	}
	var st camera.State
	if err := json.Unmarshal([]byte(args[0].String()), &st); err != nil {
		return errResult(err)
	}
	ed.SetCameraState(st)
	return nil
}

func cameraState(this js.Value, args []js.Value) interface{} {
	data, err := json.Marshal(ed.CameraState())
	if err != nil {
		return errResult(err)
	}
	return js.ValueOf(string(data))
}

// --- queries ---

func render(this js.Value, args []js.Value) interface{} {
	data, err := json.Marshal(ed.Render())
	if err != nil {
		return errResult(err)
	}
	return js.ValueOf(string(data))
}

func needsRender(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(ed.NeedsRender())
}

func hitTest(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return js.ValueOf("")
	}
	world := ed.Camera().ScreenToWorld(geom.Vec2{X: args[0].Float(), Y: args[1].Float()})
	id, ok := ed.HitTest(world)
	if !ok {
		return js.ValueOf("")
	}
	return js.ValueOf(id)
}

func setOnRender(this js.Value, args []js.Value) interface{} {
	if len(args) > 0 {
		onRender = args[0]
	}
	return nil
}
