package docconv

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf16"

	"golang.org/x/text/encoding/charmap"
)

// rtfToken matches, in order: a control word with optional numeric
// argument, a hex escape, a control symbol, a group brace, a raw line
// break (ignored in RTF), and any other single character.
var rtfToken = regexp.MustCompile(`(?i)\\([a-z]{1,32})(-?\d{1,10})? ?|\\'([0-9a-f]{2})|\\([^a-z])|([{}])|[\r\n]+|(.)`)

// rtfDestinations are groups whose content is not document text.
var rtfDestinations = toSet(`aftncn aftnsep aftnsepc annotation atnauthor atndate atnicn atnid
atnparent atnref atntime atrfend atrfstart author background bkmkend bkmkstart blipuid buptim
category colorschememapping colortbl comment company creatim datafield datastore defchp defpap
do doccomm docvar dptxbxtext ebcend ebcstart factoidname falt fchars ffdeftext ffentrymcr
ffexitmcr ffformat ffhelptext ffl ffname ffstattext file filetbl fldinst fldtype fname fontemb
fontfile fonttbl footer footerf footerl footerr footnote formfield ftncn ftnsep ftnsepc
generator gridtbl header headerf headerl headerr hl hlfr hlinkbase hlloc hlsrc hsv htmltag info
keycode keywords latentstyles lchars levelnumbers leveltext lfolevel linkval list listlevel
listname listoverride listoverridetable listpicture liststylename listtable listtext
lsdlockedexcept macc maccpr mailmerge manager mmath mmathpict mmathpr nesttableprops nextfile
nonesttables objalias objclass objdata object objname objsect objtime oldcprops oldpprops
oldsprops oldtprops oleclsid operator panose password passwordhash pgp pgptbl picprop pict pn
pnseclvl pntext pntxta pntxtb printim private propname protend protstart protusertbl pxe revtbl
revtim rsidtbl rxe shp shpgrp shpinst shppict shprslt shptxt sn sp staticval stylesheet subject
sv svb tc template themedata title txe ud upr userprops wgrffmtfilter windowcaption
writereservation writereservhash xe xform xmlattrname xmlattrvalue xmlclose xmlname xmlnstbl
xmlopen`)

var rtfSpecialWords = map[string]string{
	"par":       "\n",
	"sect":      "\n\n",
	"page":      "\n\n",
	"line":      "\n",
	"row":       "\n",
	"tab":       "\t",
	"cell":      "|",
	"nestcell":  "|",
	"emdash":    "—",
	"endash":    "–",
	"emspace":   "\u2003",
	"enspace":   "\u2002",
	"qmspace":   "\u2005",
	"bullet":    "•",
	"lquote":    "‘",
	"rquote":    "’",
	"ldblquote": "“",
	"rdblquote": "”",
}

var codePages = map[int]*charmap.Charmap{
	437:   charmap.CodePage437,
	850:   charmap.CodePage850,
	1250:  charmap.Windows1250,
	1251:  charmap.Windows1251,
	1252:  charmap.Windows1252,
	1253:  charmap.Windows1253,
	1254:  charmap.Windows1254,
	1255:  charmap.Windows1255,
	1256:  charmap.Windows1256,
	1257:  charmap.Windows1257,
	1258:  charmap.Windows1258,
	10000: charmap.Macintosh,
}

type rtfGroup struct {
	ucSkip    int
	ignorable bool
}

// RTFToText extracts the visible text of an RTF document. Malformed input
// (unbalanced braces, unknown control words) is tolerated; whatever text
// can be recovered is returned.
func RTFToText(doc string) string {
	var (
		out       strings.Builder
		stack     []rtfGroup
		ignorable bool
		ucSkip    = 1
		curSkip   = 0
		cp        = charmap.Windows1252
		highSurr  rune
	)

	emit := func(s string) {
		if highSurr != 0 {
			out.WriteRune(highSurr)
			highSurr = 0
		}
		out.WriteString(s)
	}

	for pos := 0; pos < len(doc); {
		rest := doc[pos:]
		m := rtfToken.FindStringSubmatchIndex(rest)
		if m == nil {
			break
		}
		pos += m[1]
		group := func(i int) (string, bool) {
			if m[2*i] < 0 {
				return "", false
			}
			return rest[m[2*i]:m[2*i+1]], true
		}

		if brace, ok := group(5); ok {
			curSkip = 0
			if brace == "{" {
				stack = append(stack, rtfGroup{ucSkip: ucSkip, ignorable: ignorable})
			} else if n := len(stack); n > 0 {
				ucSkip, ignorable = stack[n-1].ucSkip, stack[n-1].ignorable
				stack = stack[:n-1]
			}
			continue
		}

		if sym, ok := group(4); ok {
			curSkip = 0
			switch sym {
			case "*":
				ignorable = true
			case "~":
				if !ignorable {
					emit("\u00a0")
				}
			case "_":
				if !ignorable {
					emit("\u2011")
				}
			case "{", "}", "\\":
				if !ignorable {
					emit(sym)
				}
			case "\n", "\r":
				if !ignorable {
					emit("\n")
				}
			}
			continue
		}

		if word, ok := group(1); ok {
			curSkip = 0
			word = strings.ToLower(word)
			arg, hasArg := group(2)

			switch {
			case rtfDestinations[word]:
				ignorable = true
			case word == "ansicpg" && hasArg:
				if n, err := strconv.Atoi(arg); err == nil {
					if page, ok := codePages[n]; ok {
						cp = page
					}
				}
			case ignorable:
			case word == "uc" && hasArg:
				if n, err := strconv.Atoi(arg); err == nil && n >= 0 {
					ucSkip = n
				}
			case word == "u" && hasArg:
				n, err := strconv.Atoi(arg)
				if err != nil {
					continue
				}
				if n < 0 {
					n += 0x10000
				}
				r := rune(n)
				switch {
				case utf16.IsSurrogate(r) && r < 0xDC00:
					if highSurr != 0 {
						out.WriteRune(highSurr)
					}
					highSurr = r
				case utf16.IsSurrogate(r) && highSurr != 0:
					out.WriteRune(utf16.DecodeRune(highSurr, r))
					highSurr = 0
				default:
					emit(string(r))
				}
				curSkip = ucSkip
			default:
				if s, ok := rtfSpecialWords[word]; ok {
					emit(s)
				}
			}
			continue
		}

		if hex, ok := group(3); ok {
			if curSkip > 0 {
				curSkip--
				continue
			}
			if ignorable {
				continue
			}
			b, err := strconv.ParseUint(hex, 16, 8)
			if err == nil {
				emit(string(cp.DecodeByte(byte(b))))
			}
			continue
		}

		if ch, ok := group(6); ok {
			if curSkip > 0 {
				curSkip--
				continue
			}
			if !ignorable {
				emit(ch)
			}
		}
	}

	if highSurr != 0 {
		out.WriteRune(highSurr)
	}
	return out.String()
}

func toSet(words string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range strings.Fields(words) {
		set[w] = true
	}
	return set
}
