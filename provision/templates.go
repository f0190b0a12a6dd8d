package provision

import (
	"text/template"
)

// unitData holds data for the systemd unit template.
type unitData struct {
	Client     string
	WorkingDir string
	Port       int
	ExecStart  string
}

// vhostData holds data for the nginx virtual-host template.
type vhostData struct {
	Hostname    string
	FrontendDir string
	Port        int
}

var unitTmpl = template.Must(template.New("unit").Parse(`[Unit]
Description=BizCalc API (client: {{.Client}})
After=network.target

[Service]
Type=simple
User=www-data
WorkingDirectory={{.WorkingDir}}
Environment=PORT={{.Port}}
ExecStart={{.ExecStart}}
Restart=always
RestartSec=5

[Install]
WantedBy=multi-user.target
`))

var vhostTmpl = template.Must(template.New("vhost").Parse(`server {
    listen 80;
    server_name {{.Hostname}};
    root {{.FrontendDir}};
    index index.html;

    location /api/ {
        proxy_pass http://127.0.0.1:{{.Port}}/;
        proxy_http_version 1.1;
        proxy_set_header Upgrade $http_upgrade;
        proxy_set_header Connection 'upgrade';
        proxy_set_header Host $host;
        proxy_set_header X-Real-IP $remote_addr;
        proxy_set_header X-Forwarded-For $proxy_add_x_forwarded_for;
        proxy_set_header X-Forwarded-Proto $scheme;
    }

    location / {
        try_files $uri $uri/ /index.html;
    }
}
`))
