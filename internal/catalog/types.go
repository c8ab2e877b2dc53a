package catalog

// PhoneModel 是设备选择框中的一项
type PhoneModel struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// UrgencyLevel 描述一个紧急程度档位及其承诺的周转时间
type UrgencyLevel struct {
	Value       string `json:"value"`
	Label       string `json:"label"`
	Description string `json:"description"`
	Turnaround  string `json:"turnaround"`
	Color       string `json:"color"`
	BgColor     string `json:"bgColor"`
}

const (
	UrgencyLow    = "low"
	UrgencyMedium = "medium"
	UrgencyHigh   = "high"

	// DefaultUrgency is preselected on a fresh form.
	DefaultUrgency = UrgencyMedium

	// PhoneModelOther is the catch-all entry; the description names the device.
	PhoneModelOther = "other"
)
