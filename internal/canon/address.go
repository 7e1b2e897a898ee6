package canon

import (
    "regexp"
    "strings"
)

var (
    rePunct    = regexp.MustCompile(`[^A-Za-z0-9\s]`)
    reCAPostal = regexp.MustCompile(`^[A-Z]\d[A-Z]\s*\d[A-Z]\d$`)
    reUSZip    = regexp.MustCompile(`^\d{5}`)
)

// Canonicalize normalizes a street address and computes a stable address key.
// Unit and suite designators are dropped so every unit of a building shares a key.
func Canonicalize(line1, city, province, postal string) (normLine1, normCity, normProvince, normPostal, addressKey string) {
    n1 := strings.TrimSpace(strings.ToUpper(line1))
    n1 = stripUnit(n1)
    n1 = rePunct.ReplaceAllString(n1, " ")
    n1 = collapseSpaces(n1)
    n1 = abbreviateSuffix(n1)

    c := collapseSpaces(rePunct.ReplaceAllString(strings.ToUpper(strings.TrimSpace(city)), " "))
    p := collapseSpaces(strings.ToUpper(strings.TrimSpace(province)))
    if len(p) > 2 { p = regionAbbrev(p) }
    z := canonicalPostal(postal)

    if n1 == "" || c == "" || p == "" || z == "" {
        return n1, c, p, z, ""
    }
    key := strings.ToLower(n1 + "|" + c + "|" + p + "|" + z)
    return n1, c, p, z, key
}

func collapseSpaces(s string) string {
    return strings.Join(strings.Fields(s), " ")
}

// canonicalPostal returns "A1A1A1" for Canadian codes and the 5-digit prefix for US ZIPs.
func canonicalPostal(z string) string {
    z = strings.ToUpper(strings.TrimSpace(z))
    if reCAPostal.MatchString(z) {
        return strings.ReplaceAll(z, " ", "")
    }
    if m := reUSZip.FindString(z); m != "" {
        return m
    }
    return strings.ReplaceAll(z, " ", "")
}

func stripUnit(s string) string {
    // "1203-55 Bremner Blvd" style unit prefixes
    if i := strings.Index(s, "-"); i > 0 && isDigits(s[:i]) {
        s = strings.TrimSpace(s[i+1:])
    }
    toks := []string{" APT ", " UNIT ", " STE ", " SUITE ", " PH ", " #"}
    up := " " + s + " "
    for _, t := range toks {
        if i := strings.Index(up, t); i >= 0 {
            return strings.TrimSpace(up[:i])
        }
    }
    return strings.TrimSpace(s)
}

func isDigits(s string) bool {
    if s == "" { return false }
    for _, r := range s {
        if r < '0' || r > '9' { return false }
    }
    return true
}

var suffixes = map[string]string{
    "STREET": "ST", "ROAD": "RD", "AVENUE": "AVE", "BOULEVARD": "BLVD",
    "DRIVE": "DR", "LANE": "LN", "COURT": "CT", "CIRCLE": "CIR",
    "TERRACE": "TER", "PLACE": "PL", "PARKWAY": "PKWY", "HIGHWAY": "HWY",
    "CRESCENT": "CRES", "TRAIL": "TRL", "SQUARE": "SQ", "GARDENS": "GDNS",
}

// abbreviateSuffix rewrites whole-word suffixes so "Main Street" and "Main St" match.
func abbreviateSuffix(s string) string {
    words := strings.Fields(s)
    for i, w := range words {
        if i == 0 { continue }
        if v, ok := suffixes[w]; ok { words[i] = v }
    }
    return strings.Join(words, " ")
}

var regions = map[string]string{
    "ONTARIO": "ON", "QUEBEC": "QC", "BRITISH COLUMBIA": "BC", "ALBERTA": "AB",
    "MANITOBA": "MB", "SASKATCHEWAN": "SK", "NOVA SCOTIA": "NS", "NEW BRUNSWICK": "NB",
    "NEWFOUNDLAND AND LABRADOR": "NL", "PRINCE EDWARD ISLAND": "PE", "YUKON": "YT",
    "NORTHWEST TERRITORIES": "NT", "NUNAVUT": "NU",
    "NEW YORK": "NY", "CALIFORNIA": "CA", "FLORIDA": "FL", "TEXAS": "TX",
    "WASHINGTON": "WA", "MICHIGAN": "MI", "ILLINOIS": "IL",
}

func regionAbbrev(s string) string {
    if v, ok := regions[s]; ok { return v }
    return s
}
