package wire

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Signature computes the MD5 digest authenticating a command body.
// The hub recomputes the digest over the identical canonical string:
//
//	obj:<obj>,<k1:v1,k2:v2,...>,ts:<ts>,model:<model>,token:<token>
//
// Args are joined by "," with keys in ascending order, so logically
// equal argument maps produce identical digests regardless of
// insertion order. An empty args map leaves the middle element empty
// and the surrounding commas in place. The digest is lower-case hex.
func Signature(obj string, args Args, ts int64, model, token string) string {
	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+":"+formatArgValue(args[k]))
	}

	base := fmt.Sprintf("obj:%s,%s,ts:%d,model:%s,token:%s",
		obj, strings.Join(parts, ","), ts, model, token)
	sum := md5.Sum([]byte(base))
	return hex.EncodeToString(sum[:])
}

// formatArgValue renders one argument value the way the hub firmware
// does when it recomputes the digest: strings verbatim, integers in
// decimal without exponent.
func formatArgValue(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case uint64:
		return strconv.FormatUint(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case json.Number:
		return x.String()
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprintf("%v", x)
	}
}
