package config

import "time"

// ServerConfig: 관리용 HTTP 서버 주소/포트 설정입니다.
type ServerConfig struct {
	Host string // 서버 바인딩 호스트
	Port int    // 서버 리스닝 포트
}

// ServerTuningConfig: HTTP 서버 튜닝 설정(Timeouts, Limits)입니다.
type ServerTuningConfig struct {
	ReadHeaderTimeout time.Duration
	IdleTimeout       time.Duration
	MaxHeaderBytes    int
}

// CommandsConfig: 봇 명령어 설정입니다.
type CommandsConfig struct {
	Prefix string // 명령어 접두사 (ex: "/수선")
}

// RedisConfig: Valkey 캐시/락 연결 설정입니다.
type RedisConfig struct {
	Host     string // 서버 호스트
	Port     int    // 서버 포트
	Password string // 인증 패스워드
	DB       int    // 사용할 DB 번호

	DialTimeout  time.Duration // 연결 타임아웃
	ReadTimeout  time.Duration // 읽기 타임아웃
	WriteTimeout time.Duration // 쓰기 타임아웃
}

// ValkeyMQConfig: Valkey Streams 기반 메시지 큐 설정입니다.
type ValkeyMQConfig struct {
	Host     string // MQ 서버 호스트
	Port     int    // MQ 서버 포트
	Password string // 인증 패스워드
	DB       int    // 사용할 DB 번호

	Timeout        time.Duration // 명령 타임아웃
	DialTimeout    time.Duration // 연결 타임아웃
	ConsumerGroup  string        // Consumer Group 이름
	ConsumerName   string        // Consumer 식별자
	StreamKey      string        // 인바운드 스트림 키
	ReplyStreamKey string        // 아웃바운드(응답) 스트림 키

	BatchSize    int64         // 한 번에 읽을 메시지 수
	BlockTimeout time.Duration // XREADGROUP 블록 타임아웃
	Concurrency  int           // 동시 처리 워커 수
}

// AccessConfig: 채팅방 화이트리스트 설정입니다.
// 목록이 비어 있으면 모든 채팅방을 허용한다.
type AccessConfig struct {
	AllowedChatIDs []string // 허용된 채팅방 ID 목록
	BlockedUserIDs []string // 차단된 사용자 ID 목록
}

// LogConfig: 파일 로그 로테이션 설정입니다.
type LogConfig struct {
	Dir string // 로그 파일 디렉터리 (비어있으면 stdout만 사용)

	MaxSizeMB  int  // 단일 파일 최대 크기 (MB)
	MaxBackups int  // 보관할 백업 파일 수
	MaxAgeDays int  // 백업 파일 보관 일수
	Compress   bool // 백업 파일 압축 여부
}

// TelemetryConfig: OTel 트레이싱 설정입니다.
type TelemetryConfig struct {
	Enabled      bool   // 트레이싱 활성화 여부
	Endpoint     string // OTLP gRPC 수집기 주소 (host:port)
	ServiceName  string // 서비스 이름 (리소스 속성)
	SampleRatio  float64
	InsecureConn bool // TLS 없이 연결할지 여부
}
