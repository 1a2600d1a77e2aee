package classifier

// Rule maps an expense category to the keywords that indicate it.
// ConfidenceBoost is carried as metadata and does not affect scoring.
type Rule struct {
	Category        string
	Keywords        []string
	ConfidenceBoost float64
}

// Expense categories.
const (
	CategoryAgriculturalInputs = "INSUMOS AGRÍCOLAS"
	CategoryMaintenance        = "MANUTENÇÃO E OPERAÇÃO"
	CategoryHumanResources     = "RECURSOS HUMANOS"
	CategoryOperationalService = "SERVIÇOS OPERACIONAIS"
	CategoryInfrastructure     = "INFRAESTRUTURA E UTILIDADES"
	CategoryAdministrative     = "ADMINISTRATIVAS"
	CategoryInsurance          = "SEGUROS E PROTEÇÃO"
	CategoryTaxes              = "IMPOSTOS E TAXAS"
	CategoryInvestments        = "INVESTIMENTOS"
)

// defaultRules is never mutated; Rules hands out copies.
var defaultRules = []Rule{
	{
		Category: CategoryAgriculturalInputs,
		Keywords: []string{
			// sementes
			"semente", "sementes", "milho", "soja", "feijão", "arroz", "trigo",
			// fertilizantes
			"fertilizante", "adubo", "ureia", "npk", "superfosfato", "cloreto de potássio",
			"sulfato de amônio", "fosfato", "nitrato",
			// defensivos
			"defensivo", "herbicida", "inseticida", "fungicida", "pesticida", "agrotóxico",
			"roundup", "glifosato", "atrazina",
			// corretivos
			"corretivo", "calcário", "cal", "gesso", "micronutriente", "inoculante",
		},
		ConfidenceBoost: 0.95,
	},
	{
		Category: CategoryMaintenance,
		Keywords: []string{
			// combustíveis e lubrificantes
			"combustível", "diesel", "gasolina", "álcool", "etanol", "óleo", "lubrificante",
			"graxa", "fluido hidráulico", "s10", "aditivado", "b s10",
			// peças e componentes
			"peça", "peças", "parafuso", "porca", "arruela", "rolamento", "vedação",
			"componente", "reparo", "reposição", "tubo", "cabo", "kit", "fixação", "fixacoes",
			"din", "bucha", "anel", "junta",
			// manutenção
			"manutenção", "conserto", "oficina", "mecânico", "soldagem",
			// pneus, filtros, correias
			"pneu", "pneus", "filtro", "correia", "mangueira", "vela", "bateria",
		},
		ConfidenceBoost: 0.9,
	},
	{
		Category: CategoryHumanResources,
		Keywords: []string{
			"mão de obra", "trabalhador", "funcionário", "operário", "diarista",
			"temporário", "safrista",
			"salário", "ordenado", "pagamento", "encargo", "fgts", "inss",
			"vale transporte", "vale refeição", "cesta básica", "13º salário",
			"férias", "rescisão",
		},
		ConfidenceBoost: 0.95,
	},
	{
		Category: CategoryOperationalService,
		Keywords: []string{
			"frete", "transporte", "carreto", "mudança", "logística",
			"colheita", "terceirizada", "colheitadeira", "prestação de serviço",
			"secagem", "armazenagem", "silo", "estocagem", "beneficiamento",
			"pulverização", "aplicação", "plantio", "semeadura", "cultivo",
		},
		ConfidenceBoost: 0.9,
	},
	{
		Category: CategoryInfrastructure,
		Keywords: []string{
			"energia", "elétrica", "eletricidade", "luz", "força",
			"arrendamento", "aluguel", "terra", "propriedade", "hectare",
			"construção", "reforma", "obra", "edificação", "ampliação",
			"material", "concreto", "cimento", "ferro", "madeira", "tijolo",
			"telha", "tinta", "hidráulico", "elétrico",
		},
		ConfidenceBoost: 0.85,
	},
	{
		Category: CategoryAdministrative,
		Keywords: []string{
			"honorário", "contábil", "advocatício", "agronômico", "consultoria",
			"assessoria", "auditoria", "perícia",
			"despesa bancária", "financeira", "juros", "tarifa", "anuidade",
			"cartão", "conta corrente", "empréstimo",
		},
		ConfidenceBoost: 0.9,
	},
	{
		Category: CategoryInsurance,
		Keywords: []string{
			"seguro", "agrícola", "rural", "safra", "produtividade",
			"ativo", "máquina", "veículo", "equipamento",
			"prestamista", "vida", "proteção", "cobertura", "sinistro",
		},
		ConfidenceBoost: 0.95,
	},
	{
		Category: CategoryTaxes,
		Keywords: []string{
			"itr", "iptu", "ipva", "incra", "ccir", "imposto", "taxa",
			"contribuição", "tributo", "icms", "ipi", "pis", "cofins",
			"ir", "csll", "simples",
		},
		ConfidenceBoost: 0.98,
	},
	{
		Category: CategoryInvestments,
		Keywords: []string{
			"aquisição", "compra", "investimento", "ativo",
			"máquina", "implemento", "trator", "colheitadeira", "plantadeira",
			"pulverizador", "grade", "arado", "equipamento",
			"veículo", "caminhão", "caminhonete", "carro", "motocicleta",
			"imóvel", "propriedade", "fazenda", "sítio", "infraestrutura",
			"benfeitorias", "instalações",
		},
		ConfidenceBoost: 0.85,
	},
}

// Terms whose presence in a rule marks it as a fiscal category.
var fiscalKeywords = []string{"imposto", "taxa", "icms", "ipi", "pis", "cofins", "itr", "iptu"}

// Tokens that mark a description as being about physical goods.
var productIndicators = []string{
	"litros", "unidade", "pc", "kg", "ton", "m", "cm", "mm",
	"quantidade", "valor unitário", "código", "ncm", "l de",
	"granel", "tubo", "kit", "cabo", "parafuso", "din",
}

// Rules returns a copy of the default rule table in declaration order.
func Rules() []Rule {
	return cloneRules(defaultRules)
}

// FiscalKeywords returns the terms that mark a rule as fiscal.
func FiscalKeywords() []string {
	return append([]string(nil), fiscalKeywords...)
}

// ProductIndicators returns the tokens that mark a description as being about goods.
func ProductIndicators() []string {
	return append([]string(nil), productIndicators...)
}

func cloneRules(rules []Rule) []Rule {
	out := make([]Rule, len(rules))
	for i, r := range rules {
		out[i] = Rule{
			Category:        r.Category,
			Keywords:        dedupe(r.Keywords),
			ConfidenceBoost: r.ConfidenceBoost,
		}
	}
	return out
}

// dedupe returns keywords without repeats, keeping first occurrences in order.
func dedupe(keywords []string) []string {
	seen := make(map[string]struct{}, len(keywords))
	out := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		if _, ok := seen[kw]; ok {
			continue
		}
		seen[kw] = struct{}{}
		out = append(out, kw)
	}
	return out
}
