package main

import (
	"fmt"
	"image"
	"strconv"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/widget"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"label-dispatch/internal/config"
	"label-dispatch/internal/dispatch"
	"label-dispatch/internal/encoder"
	"label-dispatch/internal/imaging"
	"label-dispatch/internal/label"
	"label-dispatch/internal/logger"
	"label-dispatch/internal/metrics"
	"label-dispatch/internal/preview"
	"label-dispatch/internal/printer"
)

const (
	AppVersion = "1.0.0"
	AppName    = "Label Print"
)

const (
	modeTemplate = "Template"
	modeText     = "Text"
	modeItem     = "Item"
)

type App struct {
	fyneApp    fyne.App
	window     fyne.Window
	cfg        config.Config
	transport  *printer.Bluetooth
	dispatcher *dispatch.Dispatcher
	renderer   *preview.Renderer
	previewImg *canvas.Image

	// current job sources
	mode     string
	tmpl     label.Template
	elements []label.Element
	dataCtx  label.DataContext
	hasTmpl  bool

	// overrides applied to template jobs
	language label.Language
	copies   int

	statusLabel   *widget.Label
	printBtn      *widget.Button
	testPrintBtn  *widget.Button
	printerSelect *widget.Select
	refreshBtn    *widget.Button
	textEntry     *widget.Entry
	item          dispatch.ItemLabel

	printers []printer.Device
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		cfg = config.Default()
	}
	if lerr := logger.Init(cfg.LogLevel, cfg.Development); lerr != nil {
		logger.Init("info", false)
	}
	defer logger.Sync()
	if err != nil {
		logger.Warn("Invalid configuration, using defaults", zap.Error(err))
	}
	metrics.Init(prometheus.DefaultRegisterer)

	transport := printer.New(cfg.PrinterOptions())
	renderer := preview.New()
	renderer.Threshold = uint8(cfg.Threshold)
	renderer.Dither = cfg.Dither

	a := app.New()
	w := a.NewWindow(fmt.Sprintf("%s v%s", AppName, AppVersion))
	w.Resize(fyne.NewSize(760, 560))

	labelApp := &App{
		fyneApp:    a,
		window:     w,
		cfg:        cfg,
		transport:  transport,
		dispatcher: dispatch.New(transport, cfg.DispatchSettings()),
		renderer:   renderer,
		mode:       modeTemplate,
		copies:     1,
		item:       dispatch.ItemLabel{Format: "small"},
	}

	w.SetMainMenu(labelApp.buildMenu())
	w.SetContent(labelApp.buildUI())
	w.SetOnClosed(labelApp.cleanup)
	w.ShowAndRun()
}

func (a *App) buildMenu() *fyne.MainMenu {
	aboutItem := fyne.NewMenuItem("About", func() {
		content := container.NewVBox(
			widget.NewLabelWithStyle(AppName, fyne.TextAlignCenter, fyne.TextStyle{Bold: true}),
			widget.NewLabel(fmt.Sprintf("Version %s", AppVersion)),
			widget.NewSeparator(),
			widget.NewLabel("Prints templated labels on TSPL, CPCL and ESC/POS printers."),
		)
		dialog.ShowCustom("About", "Close", content, a.window)
	})
	return fyne.NewMainMenu(fyne.NewMenu("Help", aboutItem))
}

func (a *App) cleanup() {
	if err := a.transport.Close(); err != nil {
		logger.Warn("Failed to release printer bindings", zap.Error(err))
	}
}

func (a *App) buildUI() fyne.CanvasObject {
	a.statusLabel = widget.NewLabel("Ready")

	// === PRINTER SECTION ===
	a.printerSelect = widget.NewSelect([]string{}, func(string) {
		a.updateButtons()
	})
	a.refreshBtn = widget.NewButton("↻", func() {
		go a.refreshPrinters()
	})

	a.testPrintBtn = widget.NewButton("Test Print", a.testPrint)
	a.testPrintBtn.Disable()

	printerRow := container.NewBorder(nil, nil, nil, container.NewHBox(a.refreshBtn, a.testPrintBtn), a.printerSelect)

	// === JOB SETTINGS ===
	languageSelect := widget.NewSelect([]string{"Template", "TSPL", "CPCL", "ESC/POS"}, func(s string) {
		if s == "Template" {
			a.language = ""
		} else {
			a.language, _ = label.ParseLanguage(s)
		}
	})
	languageSelect.SetSelected("Template")

	copiesEntry := widget.NewEntry()
	copiesEntry.SetText("1")
	copiesEntry.OnChanged = func(s string) {
		if n, err := strconv.Atoi(strings.TrimSpace(s)); err == nil && n > 0 {
			a.copies = n
		}
	}

	a.printBtn = widget.NewButton("Print", a.print)
	a.printBtn.Importance = widget.HighImportance
	a.printBtn.Disable()

	// === TEMPLATE TAB ===
	templateInfo := widget.NewLabel("No template loaded")
	loadTemplateBtn := widget.NewButton("Load Template", func() {
		a.openFile([]string{".yaml", ".yml", ".json"}, func(path string) error {
			t, elements, err := label.LoadTemplateFile(path)
			if err != nil {
				return err
			}
			a.tmpl, a.elements, a.hasTmpl = t, elements, true
			if t.Copies > 0 {
				copiesEntry.SetText(strconv.Itoa(t.Copies))
			}
			templateInfo.SetText(fmt.Sprintf("%s: %gx%g mm, %d elements", t.Name, t.Width, t.Height, len(elements)))
			return nil
		})
	})
	loadContextBtn := widget.NewButton("Load Data", func() {
		a.openFile([]string{".yaml", ".yml", ".json"}, func(path string) error {
			ctx, err := label.LoadContextFile(path)
			if err != nil {
				return err
			}
			a.dataCtx = ctx
			return nil
		})
	})
	templateTab := container.NewVBox(container.NewHBox(loadTemplateBtn, loadContextBtn), templateInfo)

	// === TEXT TAB ===
	a.textEntry = widget.NewMultiLineEntry()
	a.textEntry.SetPlaceHolder("Enter label text...")
	a.textEntry.SetMinRowsVisible(4)
	a.textEntry.OnChanged = func(string) {
		a.updatePreview()
		a.updateButtons()
	}
	textTab := container.NewVBox(a.textEntry)

	// === ITEM TAB ===
	itemID := widget.NewEntry()
	itemName := widget.NewEntry()
	itemPrice := widget.NewEntry()
	onItem := func(string) {
		a.item.Item.ItemID = strings.TrimSpace(itemID.Text)
		a.item.Item.Name = itemName.Text
		a.item.Item.Price, _ = strconv.ParseFloat(strings.TrimSpace(itemPrice.Text), 64)
		a.updatePreview()
		a.updateButtons()
	}
	itemID.OnChanged, itemName.OnChanged, itemPrice.OnChanged = onItem, onItem, onItem
	formatSelect := widget.NewSelect([]string{"small", "medium", "large"}, func(s string) {
		a.item.Format = s
		a.updatePreview()
	})
	formatSelect.SetSelected("small")
	qrCheck := widget.NewCheck("QR code", func(b bool) {
		a.item.IncludeQR = b
		a.updatePreview()
	})
	logoCheck := widget.NewCheck("Logo", func(b bool) {
		a.item.IncludeLogo = b
		a.updatePreview()
	})
	itemTab := widget.NewForm(
		widget.NewFormItem("ID", itemID),
		widget.NewFormItem("Name", itemName),
		widget.NewFormItem("Price", itemPrice),
		widget.NewFormItem("Format", formatSelect),
		widget.NewFormItem("", container.NewHBox(qrCheck, logoCheck)),
	)

	tabs := container.NewAppTabs(
		container.NewTabItem(modeTemplate, templateTab),
		container.NewTabItem(modeText, textTab),
		container.NewTabItem(modeItem, itemTab),
	)
	tabs.OnSelected = func(t *container.TabItem) {
		a.mode = t.Text
		a.updatePreview()
		a.updateButtons()
	}

	a.previewImg = canvas.NewImageFromImage(nil)
	a.previewImg.SetMinSize(fyne.NewSize(300, 240))
	a.previewImg.FillMode = canvas.ImageFillContain

	leftPanel := container.NewVBox(
		widget.NewLabel("Printer:"),
		printerRow,
		widget.NewSeparator(),
		widget.NewLabel("Language"),
		languageSelect,
		widget.NewLabel("Copies"),
		copiesEntry,
		widget.NewSeparator(),
		a.printBtn,
	)
	rightPanel := container.NewBorder(tabs, nil, nil, nil, container.NewCenter(a.previewImg))

	content := container.NewHSplit(leftPanel, rightPanel)
	content.SetOffset(0.34)

	go a.refreshPrinters()
	return container.NewBorder(nil, container.NewHBox(a.statusLabel), nil, nil, content)
}

func (a *App) refreshPrinters() {
	a.statusLabel.SetText("Looking for paired printers...")
	if !a.transport.IsBluetoothAvailable() {
		a.statusLabel.SetText("Bluetooth is disabled")
		return
	}
	a.printers = a.dispatcher.AvailablePrinters()

	options := make([]string, len(a.printers))
	for i, d := range a.printers {
		options[i] = fmt.Sprintf("%s (%s)", d.Name, d.Address)
	}
	a.printerSelect.Options = options
	if target, ok := dispatch.SelectPrinter(a.printers); ok {
		for i, d := range a.printers {
			if d.Address == target.Address {
				a.printerSelect.SetSelected(options[i])
			}
		}
	}
	a.printerSelect.Refresh()
	a.statusLabel.SetText(fmt.Sprintf("Found %d paired printer(s)", len(a.printers)))
	a.updateButtons()
}

func (a *App) selectedPrinter() *printer.Device {
	i := a.printerSelect.SelectedIndex()
	if i < 0 || i >= len(a.printers) {
		return nil
	}
	return &a.printers[i]
}

func (a *App) openFile(exts []string, load func(path string) error) {
	fd := dialog.NewFileOpen(func(reader fyne.URIReadCloser, err error) {
		if err != nil {
			dialog.ShowError(err, a.window)
			return
		}
		if reader == nil {
			return
		}
		path := reader.URI().Path()
		reader.Close()
		if err := load(path); err != nil {
			dialog.ShowError(err, a.window)
			return
		}
		a.updatePreview()
		a.updateButtons()
	}, a.window)
	fd.SetFilter(storage.NewExtensionFileFilter(exts))
	fd.Show()
}

// payload builds the dispatch payload for the active tab
func (a *App) payload() (dispatch.Payload, bool) {
	switch a.mode {
	case modeText:
		if strings.TrimSpace(a.textEntry.Text) == "" {
			return nil, false
		}
		return dispatch.Text{Content: a.textEntry.Text}, true
	case modeItem:
		if a.item.Item.ItemID == "" {
			return nil, false
		}
		return a.item, true
	}
	if !a.hasTmpl {
		return nil, false
	}
	t := a.tmpl
	if a.language != "" {
		t.Language = a.language
	}
	t.Copies = a.copies
	return dispatch.TemplateJob{Template: t, Elements: a.elements, Context: a.dataCtx}, true
}

func (a *App) updateButtons() {
	if _, ok := a.payload(); ok && len(a.printers) > 0 {
		a.printBtn.Enable()
	} else {
		a.printBtn.Disable()
	}
	if a.selectedPrinter() != nil {
		a.testPrintBtn.Enable()
	} else {
		a.testPrintBtn.Disable()
	}
}

func (a *App) updatePreview() {
	p, ok := a.payload()
	if !ok {
		return
	}

	var (
		t        label.Template
		elements []label.Element
		ctx      label.DataContext
	)
	switch p := p.(type) {
	case dispatch.Text:
		t = a.cfg.DispatchSettings().TextMedia
		elements = encoder.TextElements(t, p.Content)
	case dispatch.ItemLabel:
		t, elements, ctx = a.dispatcher.ItemTemplate(p)
	case dispatch.TemplateJob:
		t, elements, ctx = p.Template, p.Elements, p.Context
	}

	img, err := a.renderer.Render(t, elements, ctx)
	if err != nil {
		a.statusLabel.SetText(fmt.Sprintf("Preview failed: %v", err))
		return
	}
	var shown image.Image = img
	// portrait stock reads better on screen turned sideways
	if t.Orientation == label.Portrait && t.Height > t.Width*1.5 {
		shown = imaging.RotatePreviewForDisplay(img)
	}
	a.previewImg.Image = shown
	a.previewImg.Refresh()
}

func (a *App) print() {
	p, ok := a.payload()
	if !ok {
		dialog.ShowError(fmt.Errorf("nothing to print"), a.window)
		return
	}

	a.statusLabel.SetText("Printing...")
	a.printBtn.Disable()

	go func() {
		out := a.dispatcher.SendToPairedPrinter(p)
		a.statusLabel.SetText(describe(out))
		a.updateButtons()
		if !out.OK() {
			dialog.ShowError(fmt.Errorf("%s", describe(out)), a.window)
		}
	}()
}

func (a *App) testPrint() {
	device := a.selectedPrinter()
	if device == nil {
		dialog.ShowError(fmt.Errorf("no printer selected"), a.window)
		return
	}
	a.statusLabel.SetText(fmt.Sprintf("Test print on %s...", device.Name))
	a.testPrintBtn.Disable()

	go func() {
		out := a.dispatcher.TestPrint(device.Address)
		a.statusLabel.SetText(describe(out))
		a.testPrintBtn.Enable()
	}()
}

func describe(o dispatch.Outcome) string {
	switch o.Kind {
	case dispatch.Success:
		return fmt.Sprintf("Print complete on %s", o.Address)
	case dispatch.BluetoothDisabled:
		return "Bluetooth is disabled"
	case dispatch.NoPairedPrinter:
		return "No paired printer found, pair one in system settings"
	case dispatch.PrinterNotConnected:
		return fmt.Sprintf("Could not connect to %s", o.Address)
	}
	return o.Message
}
