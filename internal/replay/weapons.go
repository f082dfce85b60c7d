package replay

import "strings"

// UnknownWeapon is recorded when a kill carries no weapon.
const UnknownWeapon = "unknown"

// WeaponRenames folds weapon variants into one display name. Spent launchers
// count as the launcher; attachment and camouflage variants count as the base rifle.
var WeaponRenames = map[string]string{
	"РПГ-26 (отстрелянный)": "РПГ-26",
	"РШГ-2 (отстрелянный)":  "РШГ-2",
	"M136 HEDP (used)":      "M136 (HEDP)",
	"M136 HEAT (used)":      "M136 (HEAT)",
	"M136 HP (used)":        "M136 (HP)",
	"M72A7 (used)":          "M72A7",
	"NLAW (Used)":           "NLAW",
	"Panzerfaust 3 (Used)":  "Panzerfaust 3",

	"[CUP] Mk16 SCAR-L STD (Рукоятка) [Black]": "[CUP] Mk16 SCAR-L",
	"[CUP] Mk16 SCAR-L CQC (EGLM) [Woodland]":  "[CUP] Mk16 SCAR-L",
	"[CUP] Mk16 SCAR-L STD (EGLM) [Black]":     "[CUP] Mk16 SCAR-L",
	"[CUP] Mk16 SCAR-L STD (EGLM) [Desert]":    "[CUP] Mk16 SCAR-L",
	"[CUP] Mk16 SCAR-L STD [Desert]":           "[CUP] Mk16 SCAR-L",

	"SR-25 Carbine [Woodland]":         "SR-25 Carbine",
	"M249 PIP Long (RIS/Lightweight)":  "M249 PIP Long",
	"M249 PIP Short (RIS/SAVIT stock)": "M249 PIP Short",

	"M4A1 Block II (AFG/SOPMOD Stock)":      "M4A1 Block II",
	"M4A1 Block II Woodland (SOPMOD stock)": "M4A1 Block II",

	"[Alpha AK] АК-104 (Zenitco) [Woodland]": "АК-74М",
	"[Alpha AK] АК-105 (Zenitco) [Woodland]": "АК-74М",
	"[Alpha AK] АК-74М (Zenitco) [Black]":    "АК-74М",
	"[Alpha AK] АК-74М (Zenitco) [Winter]":   "АК-74М",

	"[Tier 1] MCX Virtus (.300BLK)[Black]": "MCX Virtus",
}

// CanonicalWeapon returns the display name of a recorded weapon.
func CanonicalWeapon(weapon *string) string {
	if weapon == nil || *weapon == "" {
		return UnknownWeapon
	}
	w := *weapon
	if renamed, ok := WeaponRenames[w]; ok {
		w = renamed
	}
	return strings.TrimSpace(w)
}
