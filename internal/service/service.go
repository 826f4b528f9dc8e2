// Package service 애플리케이션을 구성하는 장기 실행 서비스의 공통 인터페이스를 정의합니다.
package service

import (
	"context"
	"sync"
)

// Service 독립적으로 기동/종료되는 장기 실행 서비스입니다.
//
// Start는 내부 고루틴을 기동한 뒤 즉시 반환하며, serviceStopCtx가 취소되면
// 모든 고루틴을 정리하고 serviceStopWG에 완료를 보고해야 합니다.
type Service interface {
	Start(serviceStopCtx context.Context, serviceStopWG *sync.WaitGroup) error
}

// Notifier 텔레그램 알림 발송 기능에 대한 인터페이스입니다.
// 모니터, API 서버 등 외부 컴포넌트는 이 인터페이스를 통해 알림을 발송합니다.
type Notifier interface {
	// Notify 기본 채팅으로 메시지를 발송 큐에 등록합니다.
	// 반환값은 큐 등록 성공 여부이며 실제 전송 결과와는 무관합니다.
	Notify(message string) bool

	// NotifyError 오류 성격의 메시지를 발송 큐에 등록합니다.
	NotifyError(message string) bool
}
