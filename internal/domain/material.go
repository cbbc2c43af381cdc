package domain

const (
	MaterialRecyclingMetal   = "Recycling Metal"
	MaterialRecyclingPlastic = "Recycling Plastic"
	MaterialRecyclingPaper   = "Recycling Paper"
	MaterialCardboard        = "Cardboard"
	MaterialGlass            = "Glass"
	MaterialEWaste           = "E-Waste"
	MaterialOrganicWaste     = "Organic Waste"
	MaterialHazardousWaste   = "Hazardous Waste"
	MaterialGeneralWaste     = "General Waste"
)

// Materials is the fixed material taxonomy, in the order the capture screens
// list it.
var Materials = []string{
	MaterialRecyclingMetal,
	MaterialRecyclingPlastic,
	MaterialRecyclingPaper,
	MaterialCardboard,
	MaterialGlass,
	MaterialEWaste,
	MaterialOrganicWaste,
	MaterialHazardousWaste,
	MaterialGeneralWaste,
}

func IsKnownMaterial(m string) bool {
	for _, known := range Materials {
		if known == m {
			return true
		}
	}
	return false
}
