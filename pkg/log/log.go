// Package log 애플리케이션 전역 로깅 시스템을 제공합니다.
//
// logrus를 기반으로 하며, lumberjack을 통한 로그 파일 로테이션과
// component 필드 기반의 일관된 로그 분류를 지원합니다.
package log

import (
	"github.com/sirupsen/logrus"
)

// Level logrus의 로그 레벨 타입 별칭입니다.
type Level = logrus.Level

const (
	PanicLevel = logrus.PanicLevel
	FatalLevel = logrus.FatalLevel
	ErrorLevel = logrus.ErrorLevel
	WarnLevel  = logrus.WarnLevel
	InfoLevel  = logrus.InfoLevel
	DebugLevel = logrus.DebugLevel
	TraceLevel = logrus.TraceLevel
)

// Fields logrus.Fields의 타입 별칭입니다.
// 호출 측에서 logrus를 직접 import하지 않아도 구조화된 필드를 사용할 수 있습니다.
type Fields = logrus.Fields

// WithComponent component 필드를 포함한 로그 Entry를 반환합니다.
// 모든 로그에 component 필드를 일관되게 추가하기 위해 사용합니다.
func WithComponent(component string) *logrus.Entry {
	return logrus.WithFields(logrus.Fields{
		"component": component,
	})
}

// WithComponentAndFields component 필드와 추가 필드를 포함한 로그 Entry를 반환합니다.
func WithComponentAndFields(component string, fields Fields) *logrus.Entry {
	newFields := make(logrus.Fields, len(fields)+1)
	for k, v := range fields {
		newFields[k] = v
	}
	newFields["component"] = component
	return logrus.WithFields(newFields)
}

// SetDebugMode 디버그 모드 여부에 따라 전역 로그 레벨을 조정합니다.
// 환경설정 로드가 완료된 후 최종 레벨을 확정하는 용도로 사용합니다.
func SetDebugMode(debug bool) {
	if debug {
		logrus.SetLevel(logrus.TraceLevel)
	} else {
		logrus.SetLevel(logrus.InfoLevel)
	}
}
