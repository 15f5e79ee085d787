package svg

// BarOpts customises the bar chart renderer.
type BarOpts struct {
	Title       string
	Description string
	// ColorFor picks the fill of each bar from its value. Color is used
	// when it is nil.
	ColorFor  func(float64) string
	Color     string
	AxisColor string
	GridColor string
	Unit      string
	Padding   float64
	TickCount int
}

// GaugeZone is one coloured sector of the gauge, up to and including Max.
type GaugeZone struct {
	Max   float64
	Color string
	Label string
}

// GaugeOpts customises the gauge renderer.
type GaugeOpts struct {
	Title       string
	Description string
	Max         float64
	Zones       []GaugeZone
	NeedleColor string
	TextColor   string
	Unit        string
}

// Defaults for the audit charts.
const (
	DefaultWidth       = 720
	DefaultHeight      = 240
	DefaultGaugeWidth  = 320
	DefaultPadding     = 28.0
	DefaultTicks       = 4
	defaultGaugeMax    = 20.0
	gaugeThicknessRate = 0.28
)
