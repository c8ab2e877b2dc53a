package catalog

var phoneModels = []PhoneModel{
	{Value: "iphone-15-pro-max", Label: "iPhone 15 Pro Max"},
	{Value: "iphone-15-pro", Label: "iPhone 15 Pro"},
	{Value: "iphone-15", Label: "iPhone 15"},
	{Value: "iphone-14-pro-max", Label: "iPhone 14 Pro Max"},
	{Value: "iphone-14-pro", Label: "iPhone 14 Pro"},
	{Value: "iphone-14", Label: "iPhone 14"},
	{Value: "iphone-13", Label: "iPhone 13"},
	{Value: "iphone-12", Label: "iPhone 12"},
	{Value: "iphone-11", Label: "iPhone 11"},
	{Value: "samsung-galaxy-s24-ultra", Label: "Samsung Galaxy S24 Ultra"},
	{Value: "samsung-galaxy-s24", Label: "Samsung Galaxy S24"},
	{Value: "samsung-galaxy-s23", Label: "Samsung Galaxy S23"},
	{Value: "samsung-galaxy-a54", Label: "Samsung Galaxy A54"},
	{Value: "google-pixel-8-pro", Label: "Google Pixel 8 Pro"},
	{Value: "google-pixel-8", Label: "Google Pixel 8"},
	{Value: "google-pixel-7", Label: "Google Pixel 7"},
	{Value: "oneplus-12", Label: "OnePlus 12"},
	{Value: "oneplus-11", Label: "OnePlus 11"},
	{Value: "xiaomi-14", Label: "Xiaomi 14"},
	{Value: "huawei-p60", Label: "Huawei P60"},
	{Value: PhoneModelOther, Label: "Other (please specify in description)"},
}

var urgencyLevels = []UrgencyLevel{
	{
		Value:       UrgencyLow,
		Label:       "Low Priority",
		Description: "Device works, minor issues",
		Turnaround:  "5-7 business days",
		Color:       "text-green-600",
		BgColor:     "bg-green-50 border-green-200",
	},
	{
		Value:       UrgencyMedium,
		Label:       "Medium Priority",
		Description: "Device partially functional",
		Turnaround:  "2-3 business days",
		Color:       "text-yellow-600",
		BgColor:     "bg-yellow-50 border-yellow-200",
	},
	{
		Value:       UrgencyHigh,
		Label:       "High Priority",
		Description: "Device not working/urgent",
		Turnaround:  "24-48 hours",
		Color:       "text-red-600",
		BgColor:     "bg-red-50 border-red-200",
	},
}

// PhoneModels 返回设备列表的副本
func PhoneModels() []PhoneModel {
	out := make([]PhoneModel, len(phoneModels))
	copy(out, phoneModels)
	return out
}

// UrgencyLevels 返回紧急程度表的副本
func UrgencyLevels() []UrgencyLevel {
	out := make([]UrgencyLevel, len(urgencyLevels))
	copy(out, urgencyLevels)
	return out
}

func LookupPhoneModel(value string) (PhoneModel, bool) {
	for _, m := range phoneModels {
		if m.Value == value {
			return m, true
		}
	}
	return PhoneModel{}, false
}

// PhoneModelLabel returns the display label, or the raw value when unknown.
func PhoneModelLabel(value string) string {
	if m, ok := LookupPhoneModel(value); ok {
		return m.Label
	}
	return value
}

func LookupUrgency(value string) (UrgencyLevel, bool) {
	for _, u := range urgencyLevels {
		if u.Value == value {
			return u, true
		}
	}
	return UrgencyLevel{}, false
}

func IsUrgency(value string) bool {
	_, ok := LookupUrgency(value)
	return ok
}
