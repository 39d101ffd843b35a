package docstore

import "github.com/robwestplumbing/sitecms/internal/metrics"

func observeWrite(op string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
		if kind := writeKind(err); kind != "" {
			result = string(kind)
		}
	}
	metrics.StoreWrites.WithLabelValues(op, result).Inc()
}

func writeKind(err error) ErrorKind {
	for _, k := range []ErrorKind{KindSizeLimit, KindPermission, KindUnavailable, KindConflict, KindInvalid} {
		if IsKind(err, k) {
			return k
		}
	}
	return ""
}
