package classification

// FoodDetails describes what kind of dish a class is and how it
// usually keeps.
type FoodDetails struct {
	Category  string
	Condition string
}

const (
	CategorySnacks     = "Ready-to-Eat Snacks"
	CategorySweets     = "Sweet Dishes"
	CategoryBeverages  = "Beverages"
	CategoryStreetFood = "Street Food"
	CategoryStaples    = "Staples"
	CategoryCooked     = "Cooked Food"
	CategoryOther      = "Other"

	ConditionFresh  = "fresh"
	ConditionGood   = "good"
	ConditionStaple = "staple"
)

var foodDetails = map[string]FoodDetails{
	"burger":        {CategorySnacks, ConditionGood},
	"butter_naan":   {CategoryStaples, ConditionStaple},
	"chai":          {CategoryBeverages, ConditionFresh},
	"chapati":       {CategoryStaples, ConditionStaple},
	"chole_bhature": {CategoryStreetFood, ConditionFresh},
	"dal_makhani":   {CategoryCooked, ConditionGood},
	"dhokla":        {CategorySnacks, ConditionStaple},
	"fried_rice":    {CategoryCooked, ConditionGood},
	"idli":          {CategoryCooked, ConditionFresh},
	"jalebi":        {CategorySweets, ConditionGood},
	"kaathi_rolls":  {CategoryStreetFood, ConditionGood},
	"kadai_paneer":  {CategoryCooked, ConditionGood},
	"kulfi":         {CategorySweets, ConditionGood},
	"masala_dosa":   {CategoryCooked, ConditionFresh},
	"momos":         {CategorySnacks, ConditionFresh},
	"paani_puri":    {CategorySnacks, ConditionGood},
	"pakode":        {CategorySnacks, ConditionGood},
	"pav_bhaji":     {CategoryStreetFood, ConditionFresh},
	"pizza":         {CategorySnacks, ConditionGood},
	"samosa":        {CategorySnacks, ConditionGood},
}

// Details returns the category and typical condition of a food class.
// Unknown names fall back to "Other" and "good".
func Details(name string) FoodDetails {
	if d, ok := foodDetails[name]; ok {
		return d
	}
	return FoodDetails{Category: CategoryOther, Condition: ConditionGood}
}
