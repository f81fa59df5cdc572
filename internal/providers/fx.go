package providers

import (
	"github.com/smallbiznis/trailbook/internal/providers/broker"
	"github.com/smallbiznis/trailbook/internal/providers/email"
	"github.com/smallbiznis/trailbook/internal/providers/pdf"
	"go.uber.org/fx"
)

var Module = fx.Module("providers",
	email.Module,
	broker.Module,
	pdf.Module,
)
