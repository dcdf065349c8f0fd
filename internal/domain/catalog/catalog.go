// Package catalog holds the static reference table of tomato leaf diseases.
package catalog

import "leaf-doctor/internal/domain/entity"

const (
	FallbackDescription = "Description not available."
	FallbackRemedy      = "General tips for maintaining plant health."
)

var table = []entity.DiseaseInfo{
	{
		Label:       "Bacterial Spot",
		Description: "Bacterial Spot causes dark, sunken lesions on tomato leaves. It can lead to significant yield loss if not managed properly.",
		Remedy:      "Prevent by using disease-free seeds, practicing crop rotation, and applying copper-based fungicides.",
	},
	{
		Label:       "Early Blight",
		Description: "Early Blight is characterized by dark, concentric lesions on leaves. It affects the foliage and can reduce fruit quality.",
		Remedy:      "Manage by using resistant varieties, applying fungicides, and removing affected plant parts.",
	},
	{
		Label:       "Healthy",
		Description: "The leaf appears healthy with no visible symptoms of disease.",
		Remedy:      "No action needed. Maintain good agricultural practices to keep plants healthy.",
	},
	{
		Label:       "Iron Deficiency",
		Description: "Iron Deficiency causes interveinal chlorosis (yellowing between the veins) on leaves. It affects overall plant growth and productivity.",
		Remedy:      "Prevent by ensuring adequate iron in the soil through fertilizers or foliar sprays.",
	},
	{
		Label:       "Late Blight",
		Description: "Late Blight causes dark, water-soaked lesions on leaves and stems, often leading to a rapid decay of the plant.",
		Remedy:      "Manage by removing infected plants, applying fungicides, and improving air circulation.",
	},
	{
		Label:       "Leaf Mold",
		Description: "Leaf Mold results in grayish-green to brown mold on the undersides of leaves, often accompanied by a white, powdery substance.",
		Remedy:      "Prevent by providing proper ventilation and avoiding overhead watering.",
	},
	{
		Label:       "Leaf Miner",
		Description: "Leaf Miner larvae create winding trails or mines in the leaf tissue, causing the leaves to become distorted.",
		Remedy:      "Prevent by using insecticides, introducing natural predators, and removing affected leaves.",
	},
	{
		Label:       "Mosaic Virus",
		Description: "Mosaic Virus causes leaves to display a mottled pattern of light and dark green. It can reduce plant vigor and yield.",
		Remedy:      "Prevent by using virus-free seeds and controlling insect vectors like aphids.",
	},
	{
		Label:       "Septoria",
		Description: "Septoria causes small, dark spots with concentric rings on leaves. It can lead to significant defoliation.",
		Remedy:      "Manage by practicing crop rotation, using resistant varieties, and applying fungicides.",
	},
	{
		Label:       "Spider Mites",
		Description: "Spider Mites cause stippling and discoloration of leaves. They can lead to reduced plant growth and fruit quality.",
		Remedy:      "Prevent by maintaining adequate humidity, using miticides, and introducing natural predators.",
	},
	{
		Label:       "Yellow Leaf Curl Virus",
		Description: "Yellow Leaf Curl Virus causes leaves to curl and turn yellow. It can severely impact plant health and yield.",
		Remedy:      "Prevent by using virus-resistant varieties and controlling insect vectors like whiteflies.",
	},
}

var index = func() map[string]int {
	m := make(map[string]int, len(table))
	for i, d := range table {
		m[d.Label] = i
	}
	return m
}()

// Lookup returns the stored entry for label, or the fallback entry.
// Matching is exact and case-sensitive.
func Lookup(label string) entity.DiseaseInfo {
	info, _ := find(label)
	return info
}

// Known reports whether label has a stored entry.
func Known(label string) bool {
	_, ok := index[label]
	return ok
}

// Labels returns the known labels in table order.
func Labels() []string {
	out := make([]string, len(table))
	for i, d := range table {
		out[i] = d.Label
	}
	return out
}

func find(label string) (entity.DiseaseInfo, bool) {
	if i, ok := index[label]; ok {
		return table[i], true
	}
	return entity.DiseaseInfo{
		Label:       label,
		Description: FallbackDescription,
		Remedy:      FallbackRemedy,
	}, false
}

// Describer adapts the table to port.DiseaseDescriber.
type Describer struct{}

// Describe implements port.DiseaseDescriber.
func (Describer) Describe(label string) (entity.DiseaseInfo, bool) {
	return find(label)
}
