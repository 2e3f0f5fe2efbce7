package common

import (
	"crypto/tls"
	"net"
	"net/http"
	"path"
	"runtime"
	"strings"
	"time"

	"github.com/devopsext/utils"
	"github.com/rs/xid"
)

func IsEmpty(s string) bool {
	s1 := strings.TrimSpace(s)
	return len(s1) == 0
}

func Contains(list []string, s string) bool {

	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}

func MakeHttpClient(timeout int) *http.Client {

	var transport = &http.Transport{
		Dial:                (&net.Dialer{Timeout: time.Duration(timeout) * time.Second}).Dial,
		TLSHandshakeTimeout: time.Duration(timeout) * time.Second,
		TLSClientConfig:     &tls.Config{InsecureSkipVerify: true},
	}

	var client = &http.Client{
		Timeout:   time.Duration(timeout) * time.Second,
		Transport: transport,
	}

	return client
}

func getLastPath(s string, limit int) string {

	index := 0
	dir := s
	var arr []string

	for !IsEmpty(dir) {
		if index >= limit {
			break
		}
		index++
		arr = append([]string{path.Base(dir)}, arr...)
		dir = path.Dir(dir)
	}
	return path.Join(arr...)
}

func GetCallerInfo(offset int) (string, string, int) {

	pc := make([]uintptr, 15)
	n := runtime.Callers(offset, pc)
	frames := runtime.CallersFrames(pc[:n])
	frame, _ := frames.Next()

	function := getLastPath(frame.Function, 1)
	file := getLastPath(frame.File, 3)
	line := frame.Line

	return function, file, line
}

// GetKeyValues parses a "k1=v1,k2=v2" string, values like "${ENV:default}"
// are expanded from the environment.
func GetKeyValues(s string) map[string]string {

	m := make(map[string]string)

	for _, p := range strings.Split(s, ",") {

		if IsEmpty(p) {
			continue
		}
		kv := strings.SplitN(p, "=", 2)
		if len(kv) < 2 {
			continue
		}
		k, v := strings.TrimSpace(kv[0]), strings.TrimSpace(kv[1])

		if strings.HasPrefix(v, "${") && strings.HasSuffix(v, "}") {
			ed := strings.SplitN(v[2:len(v)-1], ":", 2)
			e, d := ed[0], ""
			if len(ed) > 1 {
				d = ed[1]
			}
			v = utils.EnvGet(e, "").(string)
			if v == "" && d != "" {
				v = d
			}
		}
		m[k] = v
	}
	return m
}

func GetGuid() string {
	guid := xid.New()
	return guid.String()
}
